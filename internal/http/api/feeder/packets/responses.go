package packets

// FeederResponse mirrors model.Feeder but flattens times to RFC3339
type FeederResponse struct {
	ID        int     `json:"id"`
	DeviceID  *string `json:"device_id"`
	Name      string  `json:"name"`
	PetName   *string `json:"pet_name"`
	PhotoURL  *string `json:"photo_url"`
	Paired    bool    `json:"paired"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// NextMealResponse feeds the home screen countdown.
type NextMealResponse struct {
	Configured       bool    `json:"configured"`
	NextMealAt       *string `json:"next_meal_at,omitempty"`
	Remaining        string  `json:"remaining,omitempty"`
	RemainingHours   int     `json:"remaining_hours"`
	RemainingMinutes int     `json:"remaining_minutes"`
	PetName          string  `json:"pet_name"`
}

type FeedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type FeedingResponse struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	MealTime *string `json:"meal_time,omitempty"`
	FedAt    string  `json:"fed_at"`
}
