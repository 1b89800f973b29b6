package db

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

func (s *sqlStore) RecordFeeding(ctx context.Context, f model.Feeding) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO feedings (id, feeder_id, source, meal_time, fed_at)
		VALUES (?, ?, ?, ?, ?)
		`), f.ID, f.FeederID, f.Source, f.MealTime, f.FedAt.UTC())
	if err != nil {
		log.Error().Err(err).Int("feeder_id", f.FeederID).Str("source", f.Source).Msg("failed to record feeding")
	}
	return err
}

// ListFeedings returns the most recent feedings first.
func (s *sqlStore) ListFeedings(ctx context.Context, feederID, limit int) ([]model.Feeding, error) {
	out := []model.Feeding{}
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT id, feeder_id, source, meal_time, fed_at
		FROM feedings
		WHERE feeder_id = ?
		ORDER BY fed_at DESC
		LIMIT ?
		`), feederID, limit)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", feederID).Msg("failed to list feedings")
		return nil, err
	}
	return out, nil
}
