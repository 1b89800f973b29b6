package feeding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

func times(values ...string) []model.MealTime {
	out := make([]model.MealTime, 0, len(values))
	for _, v := range values {
		out = append(out, model.MustMealTime(v))
	}
	return out
}

func at(day, hour, minute, second int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, second, 0, time.UTC)
}

func TestComputeNextMeal(t *testing.T) {
	tests := []struct {
		name      string
		times     []model.MealTime
		now       time.Time
		want      time.Time
		remaining string
	}{
		{
			name:      "later today",
			times:     times("08:00", "13:00", "19:00"),
			now:       at(10, 7, 30, 0),
			want:      at(10, 8, 0, 0),
			remaining: "0h 30min",
		},
		{
			name:      "wraps to tomorrow after last meal",
			times:     times("08:00", "13:00", "19:00"),
			now:       at(10, 20, 0, 0),
			want:      at(11, 8, 0, 0),
			remaining: "12h 0min",
		},
		{
			name:      "equal time wraps a full day",
			times:     times("08:00"),
			now:       at(10, 8, 0, 0),
			want:      at(11, 8, 0, 0),
			remaining: "24h 0min",
		},
		{
			name:      "first later time in order, not the nearest",
			times:     times("23:45", "00:15"),
			now:       at(10, 0, 30, 0),
			want:      at(10, 23, 45, 0),
			remaining: "23h 15min",
		},
		{
			name:      "seconds are truncated",
			times:     times("08:00"),
			now:       at(10, 7, 30, 45),
			want:      at(10, 8, 0, 0),
			remaining: "0h 29min",
		},
		{
			name:      "middle meal",
			times:     times("08:00", "13:00", "19:00"),
			now:       at(10, 13, 0, 0),
			want:      at(10, 19, 0, 0),
			remaining: "6h 0min",
		},
		{
			name:      "month rollover",
			times:     times("06:15"),
			now:       time.Date(2025, time.March, 31, 22, 0, 0, 0, time.UTC),
			want:      time.Date(2025, time.April, 1, 6, 15, 0, 0, time.UTC),
			remaining: "8h 15min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeNextMeal(tt.times, tt.now)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got.At), "want %s, got %s", tt.want, got.At)
			assert.Equal(t, tt.remaining, got.String())
		})
	}
}

func TestComputeNextMeal_Empty(t *testing.T) {
	_, ok := ComputeNextMeal(nil, at(10, 7, 30, 0))
	assert.False(t, ok)

	_, ok = ComputeNextMeal([]model.MealTime{}, at(10, 23, 59, 59))
	assert.False(t, ok)
}

func TestComputeNextMeal_AlwaysInFuture(t *testing.T) {
	configured := times("00:00", "06:30", "12:00", "18:45", "23:59")
	for minute := 0; minute < 24*60; minute += 7 {
		now := at(10, minute/60, minute%60, 30)
		got, ok := ComputeNextMeal(configured, now)
		require.True(t, ok)
		assert.True(t, got.At.After(now), "now %s next %s", now, got.At)
		assert.Zero(t, got.At.Second())
		assert.Equal(t, got.At.Sub(now), got.Remaining)
	}
}

func TestComputeNextMeal_EqualityWrapIsExactlyOneDay(t *testing.T) {
	now := at(10, 13, 0, 0)
	got, ok := ComputeNextMeal(times("13:00"), now)
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, got.Remaining)
	assert.Equal(t, 24, got.Hours())
	assert.Equal(t, 0, got.Minutes())
}

func TestComputeNextMeal_Idempotent(t *testing.T) {
	configured := times("09:10", "21:20")
	now := at(10, 15, 4, 0)

	first, _ := ComputeNextMeal(configured, now)
	second, _ := ComputeNextMeal(configured, now)
	assert.Equal(t, first, second)
}

func TestComputeNextMeal_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2025, time.March, 10, 21, 0, 0, 0, loc)

	got, ok := ComputeNextMeal(times("07:00"), now)
	require.True(t, ok)
	assert.Equal(t, loc, got.At.Location())
	assert.Equal(t, 7, got.At.Hour())
	assert.Equal(t, "10h 0min", got.String())
}
