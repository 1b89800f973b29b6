package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

type fakeStore struct {
	feeders  []model.Feeder
	configs  map[int]model.MealConfig
	feedings []model.Feeding
	markErr  error
}

func (f *fakeStore) ListPairedFeeders(context.Context) ([]model.Feeder, error) {
	return f.feeders, nil
}

func (f *fakeStore) RecordFeeding(_ context.Context, fe model.Feeding) error {
	f.feedings = append(f.feedings, fe)
	return nil
}

func (f *fakeStore) MarkMealFed(_ context.Context, feederID, position int, at model.MealTime, date string) error {
	if f.markErr != nil {
		return f.markErr
	}
	cfg := f.configs[feederID]
	if cfg.MealTimes[position].Time != at {
		return errors.New("slot changed")
	}
	slots := append([]model.MealSlot(nil), cfg.MealTimes...)
	slots[position].Fed = true
	slots[position].LastFedDate = date
	cfg.MealTimes = slots
	f.configs[feederID] = cfg
	return nil
}

// Load/Save over the same map, plus an invalidation counter.
type fakeConfigs struct {
	store       *fakeStore
	invalidated []int
}

func (c *fakeConfigs) Load(_ context.Context, feederID int) (model.MealConfig, error) {
	cfg, ok := c.store.configs[feederID]
	if !ok {
		return model.MealConfig{}, fmt.Errorf("feeder %d: %w", feederID, feeding.ErrNotConfigured)
	}
	return cfg, nil
}

func (c *fakeConfigs) Save(_ context.Context, feederID int, cfg model.MealConfig) error {
	c.store.configs[feederID] = cfg
	return nil
}

func (c *fakeConfigs) Invalidate(_ context.Context, feederID int) {
	c.invalidated = append(c.invalidated, feederID)
}

type sent struct {
	deviceID string
	cmd      middleware.Command
}

type fakeDevices struct {
	sent []sent
	fail map[string]bool
}

func (d *fakeDevices) SendCommand(deviceID string, cmd middleware.Command) error {
	if d.fail[deviceID] {
		return errors.New("unreachable")
	}
	d.sent = append(d.sent, sent{deviceID: deviceID, cmd: cmd})
	return nil
}

func device(id string) *string { return &id }

func slots(times ...string) []model.MealSlot {
	out := make([]model.MealSlot, len(times))
	for i, t := range times {
		out[i] = model.MealSlot{Time: model.MustMealTime(t)}
	}
	return out
}

type fixture struct {
	sched   *Scheduler
	store   *fakeStore
	configs *fakeConfigs
	devices *fakeDevices
	now     time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store: &fakeStore{
			feeders: []model.Feeder{
				{ID: 1, DeviceID: device("esp-1"), Paired: true},
				{ID: 2, DeviceID: device("esp-2"), Paired: true},
				{ID: 3, DeviceID: device("esp-3"), Paired: true},
			},
			configs: map[int]model.MealConfig{
				1: {MealCount: 2, MealTimes: slots("08:00", "19:00"), IsEveryday: true},
				// weekends only
				2: {MealCount: 1, MealTimes: slots("08:00"), SelectedDays: []model.Weekday{model.Weekday(time.Saturday), model.Weekday(time.Sunday)}},
			},
		},
		devices: &fakeDevices{fail: map[string]bool{}},
		// Monday
		now: time.Date(2025, 3, 10, 8, 0, 20, 0, time.UTC),
	}
	f.configs = &fakeConfigs{store: f.store}
	f.sched = &Scheduler{
		Store:    f.store,
		Configs:  f.configs,
		Devices:  f.devices,
		Clock:    feeding.ClockFunc(func() time.Time { return f.now }),
		Interval: time.Minute,
	}
	return f
}

func TestTick_ServesDueSlots(t *testing.T) {
	f := newFixture()

	f.sched.tick(context.Background())

	require.Len(t, f.devices.sent, 1)
	assert.Equal(t, "esp-1", f.devices.sent[0].deviceID)
	cmd := f.devices.sent[0].cmd
	assert.Equal(t, middleware.CommandFeed, cmd.Type)
	assert.Equal(t, model.SourceSchedule, cmd.Source)
	assert.Equal(t, "08:00", cmd.MealTime)

	require.Len(t, f.store.feedings, 1)
	fe := f.store.feedings[0]
	assert.Equal(t, cmd.ID, fe.ID)
	assert.Equal(t, 1, fe.FeederID)
	require.NotNil(t, fe.MealTime)
	assert.Equal(t, "08:00", *fe.MealTime)

	slot := f.store.configs[1].MealTimes[0]
	assert.True(t, slot.Fed)
	assert.Equal(t, "2025-03-10", slot.LastFedDate)
	assert.False(t, f.store.configs[1].MealTimes[1].Fed)
	assert.Equal(t, []int{1}, f.configs.invalidated)
}

func TestTick_DoesNotServeTwiceInTheSameMinute(t *testing.T) {
	f := newFixture()

	f.sched.tick(context.Background())
	f.now = f.now.Add(30 * time.Second)
	f.sched.tick(context.Background())

	assert.Len(t, f.devices.sent, 1)
	assert.Len(t, f.store.feedings, 1)
}

func TestTick_FailedMarkDoesNotFeedTwice(t *testing.T) {
	f := newFixture()
	f.store.markErr = errors.New("database is locked")

	f.sched.tick(context.Background())
	f.now = f.now.Add(30 * time.Second)
	f.sched.tick(context.Background())

	assert.Len(t, f.devices.sent, 1)
	assert.Len(t, f.store.feedings, 1)
	assert.False(t, f.store.configs[1].MealTimes[0].Fed)

	// next day the slot is due again
	f.now = f.now.AddDate(0, 0, 1)
	f.sched.tick(context.Background())
	assert.Len(t, f.devices.sent, 2)
}

func TestTick_NextDayServesAgain(t *testing.T) {
	f := newFixture()

	f.sched.tick(context.Background())
	f.now = f.now.AddDate(0, 0, 1)
	f.sched.tick(context.Background())

	assert.Len(t, f.devices.sent, 2)
}

func TestTick_RespectsSelectedDays(t *testing.T) {
	f := newFixture()
	f.now = time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC) // Saturday

	f.sched.tick(context.Background())

	devices := make([]string, 0, len(f.devices.sent))
	for _, s := range f.devices.sent {
		devices = append(devices, s.deviceID)
	}
	assert.ElementsMatch(t, []string{"esp-1", "esp-2"}, devices)
}

func TestTick_NothingDueBetweenMeals(t *testing.T) {
	f := newFixture()
	f.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	f.sched.tick(context.Background())

	assert.Empty(t, f.devices.sent)
	assert.Empty(t, f.configs.invalidated)
}

func TestTick_FailedCommandIsRetriedNextTick(t *testing.T) {
	f := newFixture()
	f.devices.fail["esp-1"] = true

	f.sched.tick(context.Background())
	assert.Empty(t, f.store.feedings)
	assert.False(t, f.store.configs[1].MealTimes[0].Fed)

	f.devices.fail["esp-1"] = false
	f.now = f.now.Add(30 * time.Second)
	f.sched.tick(context.Background())
	assert.Len(t, f.store.feedings, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
