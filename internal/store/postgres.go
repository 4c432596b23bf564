package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore is the Postgres-backed event store: atomic compare-and-set
// update, unique-index enforcement on the idempotency key, and simple
// aggregation for search.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pooled connection and pings it before returning.
func NewPostgres(ctx context.Context, databaseURL string, maxConns, minConns int32) (*EventStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &EventStore{pool: pool}, nil
}

func (s *EventStore) Close() {
	s.pool.Close()
}

func (s *EventStore) Pool() *pgxpool.Pool {
	return s.pool
}

// RunMigrations applies all pending migrations under migrationsPath
// using golang-migrate. It opens its own database/sql handle (the
// migrate postgres driver doesn't speak pgx) and closes it when done.
func (s *EventStore) RunMigrations(databaseURL, migrationsPath string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}
