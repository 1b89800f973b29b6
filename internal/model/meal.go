package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidMealTime is returned when a value is not a HH:MM clock time.
	ErrInvalidMealTime = errors.New("invalid meal time")
	ErrUnknownDay      = errors.New("unknown day")
)

// same pattern the companion form validated against; single-digit hours and minutes are accepted
var mealTimePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5]?[0-9])$`)

// MealTime is a daily recurring clock time at which the feeder serves a meal.
type MealTime struct {
	Hour   int
	Minute int
}

// ParseMealTime parses "HH:MM" (or "H:M") into a MealTime.
func ParseMealTime(s string) (MealTime, error) {
	m := mealTimePattern.FindStringSubmatch(s)
	if m == nil {
		return MealTime{}, fmt.Errorf("%w: %q", ErrInvalidMealTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return MealTime{Hour: h, Minute: mm}, nil
}

// MustMealTime is ParseMealTime for literals; it panics on bad input.
func MustMealTime(s string) MealTime {
	mt, err := ParseMealTime(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// MealTimeOf returns the clock time of t, dropping seconds.
func MealTimeOf(t time.Time) MealTime {
	return MealTime{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns minutes since midnight.
func (m MealTime) Minutes() int {
	return m.Hour*60 + m.Minute
}

func (m MealTime) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour, m.Minute)
}

func (m MealTime) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MealTime) UnmarshalText(b []byte) error {
	mt, err := ParseMealTime(string(b))
	if err != nil {
		return err
	}
	*m = mt
	return nil
}

// MealSlot is one configured meal plus the feeder's bookkeeping for it.
type MealSlot struct {
	Time        MealTime `json:"time"`
	Fed         bool     `json:"fed"`
	LastFedDate string   `json:"lastFedDate"` // YYYY-MM-DD in the feeder's timezone, "" if never fed
}

// MealConfig is the automatic feeding setup of a feeder. Slot order is the
// feeding order within a day.
type MealConfig struct {
	MealCount    int        `json:"mealCount"`
	MealTimes    []MealSlot `json:"mealTimes"`
	IsEveryday   bool       `json:"isEveryday"`
	SelectedDays []Weekday  `json:"selectedDays"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Times returns the configured clock times in slot order.
func (c MealConfig) Times() []MealTime {
	out := make([]MealTime, 0, len(c.MealTimes))
	for _, s := range c.MealTimes {
		out = append(out, s.Time)
	}
	return out
}

// ActiveOn reports whether automatic feeding runs on the given weekday.
func (c MealConfig) ActiveOn(day time.Weekday) bool {
	if c.IsEveryday {
		return true
	}
	for _, d := range c.SelectedDays {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// Weekday is a time.Weekday that travels as its lowercase English name.
type Weekday time.Weekday

// labels used by the Brazilian companion app, Monday first
var dayAliases = map[string]time.Weekday{
	"segunda": time.Monday,
	"terça":   time.Tuesday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sábado":  time.Saturday,
	"sabado":  time.Saturday,
	"domingo": time.Sunday,
}

// ParseWeekday accepts English weekday names and the Portuguese labels, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == key {
			return Weekday(d), nil
		}
	}
	if d, ok := dayAliases[key]; ok {
		return Weekday(d), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDay, s)
}

func (d Weekday) String() string {
	return strings.ToLower(time.Weekday(d).String())
}

func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	wd, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = wd
	return nil
}
