// Package postgres implements store.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the connection pool and the connect retry loop.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// DefaultPoolOptions are used by Connect.
var DefaultPoolOptions = PoolOptions{
	MaxConns:        20,
	MinConns:        2,
	MaxConnLifetime: time.Hour,
	MaxConnIdleTime: 5 * time.Minute,
	MaxRetries:      5,
	RetryDelay:      2 * time.Second,
}

// Connect opens a pool with DefaultPoolOptions.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return ConnectWithOptions(ctx, dsn, DefaultPoolOptions)
}

// ConnectWithOptions opens and pings a pool, retrying with exponential backoff.
func ConnectWithOptions(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	log := logger.FromContext(ctx)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("Connect: parsing dsn: %w", err)
	}
	config.MaxConns = opts.MaxConns
	config.MinConns = opts.MinConns
	config.MaxConnLifetime = opts.MaxConnLifetime
	config.MaxConnIdleTime = opts.MaxConnIdleTime

	delay := opts.RetryDelay
	for attempt := 1; ; attempt++ {
		log.Info().Int("attempt", attempt).Int("max_retries", opts.MaxRetries).Msg("Connecting to database")

		pool, err := connectOnce(ctx, config)
		if err == nil {
			log.Info().Msg("Connected to database")
			return pool, nil
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("Database connection failed")
		if attempt >= opts.MaxRetries {
			return nil, fmt.Errorf("Connect: giving up after %d attempts: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("Connect: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func connectOnce(ctx context.Context, config *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// mapErr turns pgx.ErrNoRows into store.ErrNotFound.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
