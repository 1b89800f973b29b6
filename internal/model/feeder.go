package model

import "time"

// Feeder represents a pet feeder device owned by a user.
type Feeder struct {
	ID        int       `db:"id"          json:"id"`
	DeviceID  *string   `db:"device_id"   json:"device_id"`
	Name      string    `db:"name"        json:"name"`
	PetName   *string   `db:"pet_name"    json:"pet_name"`
	PhotoURL  *string   `db:"photo_url"   json:"photo_url"`
	Paired    bool      `db:"paired"      json:"paired"`
	CreatedBy int       `db:"created_by"  json:"created_by"`
	CreatedAt time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt time.Time `db:"updated_at"  json:"updated_at"`
}

// Feeding sources.
const (
	SourceManual   = "manual"
	SourceSchedule = "schedule"
)

// Feeding is one meal served by a feeder, either on demand or by the scheduler.
type Feeding struct {
	ID       string    `db:"id"        json:"id"`
	FeederID int       `db:"feeder_id" json:"feeder_id"`
	Source   string    `db:"source"    json:"source"`
	MealTime *string   `db:"meal_time" json:"meal_time,omitempty"` // HH:MM of the scheduled slot
	FedAt    time.Time `db:"fed_at"    json:"fed_at"`
}
