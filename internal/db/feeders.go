package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

const feederColumns = `id, device_id, name, pet_name, photo_url, paired, created_by, created_at, updated_at`

func (s *sqlStore) CreateFeeder(ctx context.Context, name string, petName *string, createdBy int) (model.Feeder, error) {
	now := time.Now().UTC()
	q := s.q(`
	INSERT INTO feeders (name, pet_name, paired, created_by, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id;`)
	var id int
	if err := s.db.QueryRowxContext(ctx, q, name, petName, false, createdBy, now, now).Scan(&id); err != nil {
		log.Error().Err(err).Msg("failed to create feeder")
		return model.Feeder{}, err
	}
	return s.GetFeederByID(ctx, id)
}

func (s *sqlStore) GetFeederByID(ctx context.Context, id int) (model.Feeder, error) {
	var f model.Feeder
	err := s.db.GetContext(ctx, &f, s.q(`SELECT `+feederColumns+` FROM feeders WHERE id = ?`), id)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", id).Msg("failed to get feeder by id")
		return model.Feeder{}, notFound(err)
	}
	return f, nil
}

func (s *sqlStore) GetFeederByDeviceID(ctx context.Context, deviceID string) (model.Feeder, error) {
	var f model.Feeder
	err := s.db.GetContext(ctx, &f, s.q(`SELECT `+feederColumns+` FROM feeders WHERE device_id = ?`), deviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to get feeder by device id")
		return model.Feeder{}, notFound(err)
	}
	return f, nil
}

func (s *sqlStore) ListFeeders(ctx context.Context, ownerID int) ([]model.Feeder, error) {
	feeders := []model.Feeder{}
	err := s.db.SelectContext(ctx, &feeders, s.q(`
		SELECT `+feederColumns+`
		FROM feeders
		WHERE created_by = ?
		ORDER BY id
		`), ownerID)
	if err != nil {
		log.Error().Err(err).Int("owner_id", ownerID).Msg("failed to list feeders")
		return nil, err
	}
	return feeders, nil
}

func (s *sqlStore) ListPairedFeeders(ctx context.Context) ([]model.Feeder, error) {
	feeders := []model.Feeder{}
	err := s.db.SelectContext(ctx, &feeders, s.q(`
		SELECT `+feederColumns+`
		FROM feeders
		WHERE paired = ? AND device_id IS NOT NULL
		ORDER BY id
		`), true)
	if err != nil {
		log.Error().Err(err).Msg("failed to list paired feeders")
		return nil, err
	}
	return feeders, nil
}

func (s *sqlStore) UpdateFeeder(ctx context.Context, id int, name, petName *string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE feeders
		SET name = COALESCE(?, name),
		pet_name = COALESCE(?, pet_name),
		updated_at = ?
		WHERE id = ?
		`), name, petName, time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", id).Msg("failed to update feeder")
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) SetFeederPhoto(ctx context.Context, id int, url string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE feeders SET photo_url = ?, updated_at = ? WHERE id = ?
		`), url, time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", id).Msg("failed to set feeder photo")
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) PairFeeder(ctx context.Context, id int, deviceID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE feeders
		SET device_id = ?, paired = ?, updated_at = ?
		WHERE id = ?
		`), deviceID, true, time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", id).Str("device_id", deviceID).Msg("failed to pair feeder")
		return err
	}
	return requireRow(res)
}

// an unknown device is reported as not paired
func (s *sqlStore) IsFeederPairedByDeviceID(ctx context.Context, deviceID string) (bool, error) {
	var paired bool
	err := s.db.GetContext(ctx, &paired, s.q(`SELECT paired FROM feeders WHERE device_id = ?`), deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return paired, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
