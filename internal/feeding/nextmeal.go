package feeding

import (
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// NextMeal is the next scheduled feeding and the time left until it.
type NextMeal struct {
	At        time.Time
	Remaining time.Duration
}

// Hours returns the whole hours of Remaining.
func (n NextMeal) Hours() int {
	return int(n.Remaining / time.Hour)
}

// Minutes returns the whole minutes of Remaining left after Hours.
func (n NextMeal) Minutes() int {
	return int(n.Remaining % time.Hour / time.Minute)
}

// String renders the countdown the way the home screen shows it, e.g. "2h 5min".
func (n NextMeal) String() string {
	return fmt.Sprintf("%dh %dmin", n.Hours(), n.Minutes())
}

// ComputeNextMeal returns the next feeding after now for the configured meal
// times. It reports false when no meal time is configured.
//
// The next meal is the first time in slice order that is later than now's
// clock time, not the nearest one; when none is later the first time is used
// and scheduled for the following day. A meal time equal to now's clock time
// is therefore served tomorrow, never "now".
func ComputeNextMeal(times []model.MealTime, now time.Time) (NextMeal, bool) {
	if len(times) == 0 {
		return NextMeal{}, false
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	next := times[0]
	for _, t := range times {
		if t.Minutes() > nowMinutes {
			next = t
			break
		}
	}

	day := now.Day()
	if next.Minutes() <= nowMinutes {
		day++
	}
	at := time.Date(now.Year(), now.Month(), day, next.Hour, next.Minute, 0, 0, now.Location())

	return NextMeal{At: at, Remaining: at.Sub(now)}, true
}
