// exposes a Store interface that is passed to API calls w/ param requirements
package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store interface {
	// user functions
	CreateUser(ctx context.Context, email, hashedPassword string, name *string) (int, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id int, email string, name *string) error

	// feeder functions
	CreateFeeder(ctx context.Context, name string, petName *string, createdBy int) (model.Feeder, error)
	GetFeederByID(ctx context.Context, id int) (model.Feeder, error)
	GetFeederByDeviceID(ctx context.Context, deviceID string) (model.Feeder, error)
	ListFeeders(ctx context.Context, ownerID int) ([]model.Feeder, error)
	ListPairedFeeders(ctx context.Context) ([]model.Feeder, error)
	UpdateFeeder(ctx context.Context, id int, name, petName *string) error
	SetFeederPhoto(ctx context.Context, id int, url string) error
	PairFeeder(ctx context.Context, id int, deviceID string) error
	IsFeederPairedByDeviceID(ctx context.Context, deviceID string) (bool, error)

	// meal configuration functions
	GetMealConfig(ctx context.Context, feederID int) (model.MealConfig, error)
	SaveMealConfig(ctx context.Context, feederID int, cfg model.MealConfig) error
	MarkMealFed(ctx context.Context, feederID, position int, at model.MealTime, date string) error

	// feeding history
	RecordFeeding(ctx context.Context, f model.Feeding) error
	ListFeedings(ctx context.Context, feederID, limit int) ([]model.Feeding, error)

	Close() error
}

type sqlStore struct {
	db *sqlx.DB
}

// compile-time check that sqlStore implements Store
var _ Store = (*sqlStore)(nil)

func NewStore(conn *sqlx.DB) Store {
	return &sqlStore{db: conn}
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// q rebinds a "?" query for the connection's driver
func (s *sqlStore) q(query string) string {
	return s.db.Rebind(query)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
