package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMealTime(t *testing.T) {
	valid := map[string]MealTime{
		"08:00": {8, 0},
		"8:5":   {8, 5},
		"00:00": {0, 0},
		"23:59": {23, 59},
		"19:07": {19, 7},
	}
	for in, want := range valid {
		got, err := ParseMealTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "24:00", "12:60", "1200", "12:00:00", " 12:00", "ab:cd"} {
		_, err := ParseMealTime(in)
		assert.ErrorIs(t, err, ErrInvalidMealTime, in)
	}
}

func TestMealTimeString(t *testing.T) {
	assert.Equal(t, "08:05", MealTime{Hour: 8, Minute: 5}.String())
	assert.Equal(t, 8*60+5, MealTime{Hour: 8, Minute: 5}.Minutes())
}

func TestMealConfigJSON(t *testing.T) {
	raw := `{"mealCount":1,"mealTimes":[{"time":"7:30","fed":false,"lastFedDate":""}],"isEveryday":false,"selectedDays":["Sábado","sunday"]}`

	var cfg MealConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, MealTime{Hour: 7, Minute: 30}, cfg.MealTimes[0].Time)
	assert.True(t, cfg.ActiveOn(time.Saturday))
	assert.True(t, cfg.ActiveOn(time.Sunday))
	assert.False(t, cfg.ActiveOn(time.Monday))

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"time":"07:30"`)
	assert.Contains(t, string(out), `"selectedDays":["saturday","sunday"]`)
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Terça")
	require.NoError(t, err)
	assert.Equal(t, Weekday(time.Tuesday), d)

	d, err = ParseWeekday("WEDNESDAY")
	require.NoError(t, err)
	assert.Equal(t, Weekday(time.Wednesday), d)

	_, err = ParseWeekday("funday")
	assert.ErrorIs(t, err, ErrUnknownDay)
}
