package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// PoolOptions tunes the postgres connection pool. Zero fields take the defaults.
type PoolOptions struct {
	Driver       string
	MaxOpen      int
	MaxIdle      int
	MaxLifetime  time.Duration
	PingTimeout  time.Duration
	HealthBudget time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.Driver == "" {
		o.Driver = "postgres"
	}
	if o.MaxOpen <= 0 {
		o.MaxOpen = 25
	}
	if o.MaxIdle <= 0 {
		o.MaxIdle = 5
	}
	if o.MaxLifetime <= 0 {
		o.MaxLifetime = 5 * time.Minute
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.HealthBudget <= 0 {
		o.HealthBudget = 3 * time.Second
	}
	return o
}

// Store owns the audit database handle shared by every repository.
type Store struct {
	db     *sql.DB
	budget time.Duration
}

// Open connects to dsn and verifies the server answers before returning.
func Open(ctx context.Context, dsn string, opts PoolOptions, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" {
		return nil, fmt.Errorf("database: dsn is empty")
	}
	opts = opts.withDefaults()

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpen)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetConnMaxLifetime(opts.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	logger.Info("postgres connected",
		slog.Int("max_open", opts.MaxOpen),
		slog.Int("max_idle", opts.MaxIdle),
	)
	return &Store{db: db, budget: opts.HealthBudget}, nil
}

// DB exposes the handle for repositories.
func (s *Store) DB() *sql.DB { return s.db }

// Ping is the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
