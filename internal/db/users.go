package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// inserts new user into table, returns new user ID.
func (s *sqlStore) CreateUser(ctx context.Context, email, hashedPassword string, name *string) (int, error) {
	query := s.q(`
	INSERT INTO users (email, hashed_password, name, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	RETURNING id;
	`)
	now := time.Now().UTC()
	var newID int
	if err := s.db.QueryRowxContext(ctx, query, email, hashedPassword, name, now, now).Scan(&newID); err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return 0, err
	}
	return newID, nil
}

// fetches user by email. returns nil, ErrNotFound if not found.
func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	query := s.q(`
	SELECT id, email, hashed_password, name, created_at, updated_at
	FROM users
	WHERE email = ?;
	`)
	if err := s.db.GetContext(ctx, &u, query, email); err != nil {
		if err = notFound(err); !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Msg("failed to get user by email")
		}
		return nil, err
	}
	return &u, nil
}

// fetches a user by ID. returns nil, ErrNotFound if not found.
func (s *sqlStore) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	query := s.q(`
	SELECT id, email, hashed_password, name, created_at, updated_at
	FROM users
	WHERE id = ?;
	`)
	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		log.Error().Err(err).Int("user_id", id).Msg("failed to get user by id")
		return nil, notFound(err)
	}
	return &u, nil
}

// updates a user's email and name, and bumps updated_at.
// returns ErrNotFound if no rows were affected.
func (s *sqlStore) UpdateUserProfile(ctx context.Context, id int, email string, name *string) error {
	query := s.q(`
	UPDATE users
	SET email = ?,
	name = ?,
	updated_at = ?
	WHERE id = ?;
	`)
	res, err := s.db.ExecContext(ctx, query, email, name, time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Msg("failed to update user profile - exec")
		return err
	}
	return requireRow(res)
}
