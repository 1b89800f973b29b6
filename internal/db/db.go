package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

func init() {
	// queries are written with "?" and rebound per driver
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the database, retrying while it comes up.
// driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, databaseURL string) (*sqlx.DB, error) {
	const maxRetries = 10
	const retryInterval = 2 * time.Second
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var conn *sqlx.DB
		conn, err = sqlx.ConnectContext(ctx, driver, databaseURL)
		if err == nil {
			if driver == "sqlite" {
				if err = prepareSQLite(ctx, conn); err != nil {
					_ = conn.Close()
					return nil, fmt.Errorf("sqlite pragmas: %w", err)
				}
			}
			log.Info().Str("driver", driver).Msg("connected to database")
			return conn, nil
		}

		log.Error().Err(err).
			Int("attempt", attempt).
			Msgf("failed to connect to database, retrying in %s", retryInterval)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
}

// sqlite is a single-writer engine; one connection also keeps ":memory:" databases alive
func prepareSQLite(ctx context.Context, conn *sqlx.DB) error {
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RunMigrations executes the embedded "*.up.sql" files of the connection's
// driver in name order. Migrations are idempotent, so they run on every start.
func RunMigrations(ctx context.Context, conn *sqlx.DB) error {
	dir := path.Join("migrations", conn.DriverName())
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed to list up migrations")
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		file := path.Join(dir, name)
		sqlBytes, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			log.Error().Str("file", file).Msg("failed to read migration file")
			return fmt.Errorf("could not read migration %q: %w", file, err)
		}
		sqlStmt := strings.TrimSpace(string(sqlBytes))
		if sqlStmt == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, sqlStmt); err != nil {
			return fmt.Errorf("error executing migration %q: %w", file, err)
		}
		log.Debug().Str("file", file).Msg("migration applied")
	}
	return nil
}
