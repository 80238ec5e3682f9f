// Package db persists per-participant presence totals in SQLite or Postgres.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/types"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the durable presence store.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNow overrides the timestamp source used for updated_at.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to the database and creates the schema if needed.
// For SQLite use a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if driver == DriverSQLite {
		// one connection keeps ":memory:" databases shared and serialises writers
		conn.SetMaxOpenConns(1)
	}

	s := &Store{db: conn, driver: driver, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}
	if err := s.createTables(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS presence_totals (
			participant_id VARCHAR(64) PRIMARY KEY,
			total_seconds DOUBLE PRECISION NOT NULL CHECK (total_seconds >= 0),
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_presence_totals_seconds ON presence_totals (total_seconds DESC)`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind turns the Postgres-style placeholders used in this package into "?"
// for SQLite. Every query lists its placeholders once and in order.
func (s *Store) rebind(query string) string {
	if s.driver == DriverPostgres {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}

// DSNFromParts builds a Postgres connection string from discrete settings.
func DSNFromParts(host, port, user, password, name string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, name,
	)
}

func (s *Store) logError(msg string, err error) {
	s.logger.Error(msg, logfields.Error(err), slog.String("driver", s.driver))
}
