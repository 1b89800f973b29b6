package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

type mealConfigRow struct {
	MealCount    int       `db:"meal_count"`
	IsEveryday   bool      `db:"is_everyday"`
	SelectedDays string    `db:"selected_days"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type mealSlotRow struct {
	MealTime    string `db:"meal_time"`
	Fed         bool   `db:"fed"`
	LastFedDate string `db:"last_fed_date"`
}

// GetMealConfig returns ErrNotFound when the feeder was never configured.
func (s *sqlStore) GetMealConfig(ctx context.Context, feederID int) (model.MealConfig, error) {
	var row mealConfigRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT meal_count, is_everyday, selected_days, updated_at
		FROM meal_configs
		WHERE feeder_id = ?
		`), feederID)
	if err != nil {
		return model.MealConfig{}, notFound(err)
	}

	var slots []mealSlotRow
	err = s.db.SelectContext(ctx, &slots, s.q(`
		SELECT meal_time, fed, last_fed_date
		FROM meal_slots
		WHERE feeder_id = ?
		ORDER BY position
		`), feederID)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", feederID).Msg("failed to list meal slots")
		return model.MealConfig{}, err
	}

	cfg := model.MealConfig{
		MealCount:    row.MealCount,
		IsEveryday:   row.IsEveryday,
		MealTimes:    make([]model.MealSlot, 0, len(slots)),
		SelectedDays: []model.Weekday{},
		UpdatedAt:    row.UpdatedAt,
	}
	for _, sl := range slots {
		mt, err := model.ParseMealTime(sl.MealTime)
		if err != nil {
			return model.MealConfig{}, fmt.Errorf("feeder %d: %w", feederID, err)
		}
		cfg.MealTimes = append(cfg.MealTimes, model.MealSlot{Time: mt, Fed: sl.Fed, LastFedDate: sl.LastFedDate})
	}
	if row.SelectedDays != "" {
		for _, name := range strings.Split(row.SelectedDays, ",") {
			d, err := model.ParseWeekday(name)
			if err != nil {
				return model.MealConfig{}, fmt.Errorf("feeder %d: %w", feederID, err)
			}
			cfg.SelectedDays = append(cfg.SelectedDays, d)
		}
	}
	return cfg, nil
}

// SaveMealConfig replaces the feeder's configuration and all of its slots.
func (s *sqlStore) SaveMealConfig(ctx context.Context, feederID int, cfg model.MealConfig) error {
	days := make([]string, 0, len(cfg.SelectedDays))
	for _, d := range cfg.SelectedDays {
		days = append(days, d.String())
	}
	updatedAt := cfg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO meal_configs (feeder_id, meal_count, is_everyday, selected_days, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (feeder_id) DO UPDATE SET
			meal_count    = excluded.meal_count,
			is_everyday   = excluded.is_everyday,
			selected_days = excluded.selected_days,
			updated_at    = excluded.updated_at
		`), feederID, cfg.MealCount, cfg.IsEveryday, strings.Join(days, ","), updatedAt.UTC())
	if err != nil {
		log.Error().Err(err).Int("feeder_id", feederID).Msg("failed to upsert meal config")
		return err
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM meal_slots WHERE feeder_id = ?`), feederID); err != nil {
		log.Error().Err(err).Int("feeder_id", feederID).Msg("failed to clear meal slots")
		return err
	}

	insert := s.q(`
		INSERT INTO meal_slots (feeder_id, position, meal_time, fed, last_fed_date)
		VALUES (?, ?, ?, ?, ?)
		`)
	for i, slot := range cfg.MealTimes {
		if _, err := tx.ExecContext(ctx, insert, feederID, i, slot.Time.String(), slot.Fed, slot.LastFedDate); err != nil {
			log.Error().Err(err).Int("feeder_id", feederID).Int("position", i).Msg("failed to insert meal slot")
			return err
		}
	}

	return tx.Commit()
}

// MarkMealFed records that the slot at position was served on date (YYYY-MM-DD).
// The slot must still hold meal time at, so a config replaced meanwhile is left alone.
func (s *sqlStore) MarkMealFed(ctx context.Context, feederID, position int, at model.MealTime, date string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE meal_slots
		SET fed = ?, last_fed_date = ?
		WHERE feeder_id = ? AND position = ? AND meal_time = ?
		`), true, date, feederID, position, at.String())
	if err != nil {
		log.Error().Err(err).Int("feeder_id", feederID).Int("position", position).Msg("failed to mark meal fed")
		return err
	}
	return requireRow(res)
}

// configRepository exposes the store as a feeding.ConfigRepository.
type configRepository struct {
	store Store
}

// ConfigRepository adapts store to the keyed load/save contract of the feeding package.
func ConfigRepository(store Store) feeding.ConfigRepository {
	return configRepository{store: store}
}

func (r configRepository) Load(ctx context.Context, feederID int) (model.MealConfig, error) {
	cfg, err := r.store.GetMealConfig(ctx, feederID)
	if errors.Is(err, ErrNotFound) {
		return model.MealConfig{}, fmt.Errorf("feeder %d: %w", feederID, feeding.ErrNotConfigured)
	}
	return cfg, err
}

func (r configRepository) Save(ctx context.Context, feederID int, cfg model.MealConfig) error {
	return r.store.SaveMealConfig(ctx, feederID, cfg)
}
