package packets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealConfigRequest_AcceptsStringsAndSlots(t *testing.T) {
	body := `{
		"mealCount": 3,
		"mealTimes": ["08:00", {"time": "13:00", "fed": true, "lastFedDate": "2025-03-10"}, ""],
		"isEveryday": false,
		"selectedDays": ["Segunda", "friday"]
	}`

	var req MealConfigRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, []string{"08:00", "13:00", ""}, req.Times())
	assert.Equal(t, []string{"Segunda", "friday"}, req.SelectedDays)
}

func TestMealConfigRequest_RejectsNumbers(t *testing.T) {
	var req MealConfigRequest
	assert.Error(t, json.Unmarshal([]byte(`{"mealCount":1,"mealTimes":[800]}`), &req))
}
