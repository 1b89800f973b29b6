package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

type Store interface {
	ListPairedFeeders(ctx context.Context) ([]model.Feeder, error)
	RecordFeeding(ctx context.Context, f model.Feeding) error
	MarkMealFed(ctx context.Context, feederID, position int, at model.MealTime, date string) error
}

type CommandPublisher interface {
	SendCommand(deviceID string, cmd middleware.Command) error
}

// implemented by caching repositories that must forget a config once a slot was served
type invalidator interface {
	Invalidate(ctx context.Context, feederID int)
}

// Scheduler serves the automatic meals of every paired feeder. Each tick
// looks at the current wall-clock minute in Clock's location.
type Scheduler struct {
	Store    Store
	Configs  feeding.ConfigRepository
	Devices  CommandPublisher
	Clock    feeding.Clock
	Interval time.Duration

	mu     sync.Mutex
	served map[servedSlot]struct{}
}

// servedSlot remembers a slot handed to the device even when persisting
// lastFedDate failed, so later ticks in the same minute skip it.
type servedSlot struct {
	feederID int
	position int
	at       model.MealTime
	date     string
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	log.Info().Dur("interval", s.Interval).Msg("scheduler started")

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	feeders, err := s.Store.ListPairedFeeders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: listing paired feeders failed")
		return
	}

	now := s.Clock.Now()
	s.forgetBefore(feeding.DateKey(now))
	for _, fd := range feeders {
		if ctx.Err() != nil {
			return
		}
		s.serveFeeder(ctx, fd, now)
	}
}

func (s *Scheduler) serveFeeder(ctx context.Context, fd model.Feeder, now time.Time) {
	if fd.DeviceID == nil {
		return
	}

	cfg, err := s.Configs.Load(ctx, fd.ID)
	if errors.Is(err, feeding.ErrNotConfigured) {
		return
	}
	if err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("scheduler: loading meal config failed")
		return
	}

	served := false
	today := feeding.DateKey(now)
	for _, pos := range feeding.DueSlots(cfg, now) {
		key := servedSlot{feederID: fd.ID, position: pos, at: cfg.MealTimes[pos].Time, date: today}
		if s.wasServed(key) {
			continue
		}
		if s.serveSlot(ctx, fd, pos, key.at, now) {
			s.markServed(key)
			served = true
		}
	}
	if served {
		if inv, ok := s.Configs.(invalidator); ok {
			inv.Invalidate(ctx, fd.ID)
		}
	}

	if next, ok := feeding.ComputeNextMeal(cfg.Times(), now); ok {
		log.Debug().
			Int("feeder_id", fd.ID).
			Time("next_meal_at", next.At).
			Str("remaining", next.String()).
			Msg("next meal")
	}
}

// serveSlot reports whether the slot was handed to the device.
func (s *Scheduler) serveSlot(ctx context.Context, fd model.Feeder, pos int, at model.MealTime, now time.Time) bool {
	cmd := middleware.FeedCommand(model.SourceSchedule, &at, now)
	if err := s.Devices.SendCommand(*fd.DeviceID, cmd); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Str("meal_time", at.String()).Msg("scheduler: feed command failed")
		return false
	}

	mealTime := at.String()
	if err := s.Store.RecordFeeding(ctx, model.Feeding{
		ID:       cmd.ID,
		FeederID: fd.ID,
		Source:   model.SourceSchedule,
		MealTime: &mealTime,
		FedAt:    now,
	}); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("scheduler: recording feeding failed")
	}

	if err := s.Store.MarkMealFed(ctx, fd.ID, pos, at, feeding.DateKey(now)); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Int("position", pos).Msg("scheduler: marking meal fed failed")
	}

	log.Info().Int("feeder_id", fd.ID).Str("meal_time", mealTime).Msg("scheduled meal served")
	return true
}

func (s *Scheduler) wasServed(key servedSlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.served[key]
	return ok
}

func (s *Scheduler) markServed(key servedSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served == nil {
		s.served = make(map[servedSlot]struct{})
	}
	s.served[key] = struct{}{}
}

// forgetBefore drops entries of earlier days.
func (s *Scheduler) forgetBefore(today string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.served {
		if key.date != today {
			delete(s.served, key)
		}
	}
}
