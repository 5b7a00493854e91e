package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectRetries bounds the startup ping attempts.
const ConnectRetries uint64 = 5

// New creates a new PostgreSQL connection pool. The first ping is retried
// with exponential backoff so the service can start alongside the database.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := Ping(ctx, "postgres", logger, func(ctx context.Context) error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}

// Ping retries ping until it succeeds, ctx ends or ConnectRetries is spent.
func Ping(ctx context.Context, name string, logger *slog.Logger, ping func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxElapsedTime = 30 * time.Second
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := ping(pingCtx)
		if err != nil {
			logger.Warn("dependency not ready", slog.String("dependency", name), slog.Int("attempt", attempt), slog.Any("error", err))
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(eb, ConnectRetries), ctx))
}
