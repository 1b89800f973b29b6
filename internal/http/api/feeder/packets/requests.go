package packets

import (
	"encoding/json"
	"errors"
)

type CreateFeederRequest struct {
	Name    string  `json:"name" binding:"required"`
	PetName *string `json:"pet_name"`
}

// nil fields are left untouched
type UpdateFeederRequest struct {
	Name    *string `json:"name"`
	PetName *string `json:"pet_name"`
}

type PairFeederRequest struct {
	PairingCode string `json:"code" binding:"required"`
	FeederID    int    `json:"feeder_id" binding:"required"`
}

// MealConfigRequest is the body of PUT /feeders/:id/meal-config.
type MealConfigRequest struct {
	MealCount    int             `json:"mealCount"`
	MealTimes    []MealTimeEntry `json:"mealTimes"`
	IsEveryday   bool            `json:"isEveryday"`
	SelectedDays []string        `json:"selectedDays"`
}

func (r MealConfigRequest) Times() []string {
	out := make([]string, len(r.MealTimes))
	for i, t := range r.MealTimes {
		out[i] = string(t)
	}
	return out
}

// MealTimeEntry accepts either "HH:MM" or a stored slot object {"time": "HH:MM", ...}.
type MealTimeEntry string

func (e *MealTimeEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = MealTimeEntry(s)
		return nil
	}
	var slot struct {
		Time *string `json:"time"`
	}
	if err := json.Unmarshal(data, &slot); err != nil {
		return errors.New("meal time must be a string or an object with a time field")
	}
	if slot.Time != nil {
		*e = MealTimeEntry(*slot.Time)
	}
	return nil
}
