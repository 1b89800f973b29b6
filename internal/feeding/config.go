package feeding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// MaxMealCount is the largest number of automatic meals per day.
const MaxMealCount = 20

var (
	ErrNotConfigured   = errors.New("no meal configuration found")
	ErrMealCount       = errors.New("meal count must be between 1 and 20")
	ErrMealTimesLength = errors.New("number of meal times does not match meal count")
	ErrMealTimeFormat  = errors.New("all meal times must be set in HH:MM format")
	ErrNoActiveDays    = errors.New("select at least one day or enable every day")
)

// ConfigRepository loads and saves meal configurations by feeder.
// Load returns an error wrapping ErrNotConfigured when nothing was saved yet.
type ConfigRepository interface {
	Load(ctx context.Context, feederID int) (model.MealConfig, error)
	Save(ctx context.Context, feederID int, cfg model.MealConfig) error
}

// ConfigInput is the raw configuration as entered by the user.
type ConfigInput struct {
	MealCount    int
	MealTimes    []string
	IsEveryday   bool
	SelectedDays []string
}

// BuildConfig validates in and returns a fresh configuration with no meal
// marked as fed.
func BuildConfig(in ConfigInput, now time.Time) (model.MealConfig, error) {
	if in.MealCount < 1 || in.MealCount > MaxMealCount {
		return model.MealConfig{}, ErrMealCount
	}
	if len(in.MealTimes) != in.MealCount {
		return model.MealConfig{}, fmt.Errorf("%w: %d times for %d meals", ErrMealTimesLength, len(in.MealTimes), in.MealCount)
	}

	slots := make([]model.MealSlot, 0, len(in.MealTimes))
	for _, raw := range in.MealTimes {
		mt, err := model.ParseMealTime(raw)
		if err != nil {
			return model.MealConfig{}, fmt.Errorf("%w: %v", ErrMealTimeFormat, err)
		}
		slots = append(slots, model.MealSlot{Time: mt})
	}

	cfg := model.MealConfig{
		MealCount:  in.MealCount,
		MealTimes:  slots,
		IsEveryday: in.IsEveryday,
		UpdatedAt:  now,
	}
	if in.IsEveryday {
		cfg.SelectedDays = []model.Weekday{}
		return cfg, nil
	}

	seen := make(map[model.Weekday]bool)
	for _, raw := range in.SelectedDays {
		d, err := model.ParseWeekday(raw)
		if err != nil {
			return model.MealConfig{}, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		cfg.SelectedDays = append(cfg.SelectedDays, d)
	}
	if len(cfg.SelectedDays) == 0 {
		return model.MealConfig{}, ErrNoActiveDays
	}
	return cfg, nil
}

// ResizeMealTimes grows times with empty entries or truncates it so that it
// holds exactly count entries, keeping the ones already entered.
func ResizeMealTimes(times []string, count int) []string {
	if count < 0 {
		count = 0
	}
	out := make([]string, count)
	copy(out, times)
	return out
}

// DateKey is the calendar date of t used for LastFedDate.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// RefreshFed recomputes each slot's Fed flag for the day of now; a slot only
// counts as fed on the day it was last served.
func RefreshFed(cfg model.MealConfig, now time.Time) model.MealConfig {
	today := DateKey(now)
	slots := make([]model.MealSlot, len(cfg.MealTimes))
	for i, s := range cfg.MealTimes {
		s.Fed = s.LastFedDate == today
		slots[i] = s
	}
	cfg.MealTimes = slots
	return cfg
}

// DueSlots returns the indexes of the slots that should be served at now's
// clock minute and have not been served today.
func DueSlots(cfg model.MealConfig, now time.Time) []int {
	if !cfg.ActiveOn(now.Weekday()) {
		return nil
	}
	current := model.MealTimeOf(now)
	today := DateKey(now)

	var due []int
	for i, s := range cfg.MealTimes {
		if s.Time == current && s.LastFedDate != today {
			due = append(due, i)
		}
	}
	return due
}
