package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaMigrationsDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		checksum   TEXT,
		applied_by TEXT
	)`

// AppliedMigrations lists rows of schema_migrations, creating the table if needed.
func AppliedMigrations(ctx context.Context, pool *pgxpool.Pool) ([]migrations.Applied, error) {
	if _, err := pool.Exec(ctx, schemaMigrationsDDL); err != nil {
		return nil, fmt.Errorf("AppliedMigrations: ensure table: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT version, name, applied_at, COALESCE(checksum, ''), COALESCE(applied_by, '')
		FROM schema_migrations
		ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: query: %w", err)
	}
	defer rows.Close()

	var out []migrations.Applied
	for rows.Next() {
		var a migrations.Applied
		if err := rows.Scan(&a.Version, &a.Name, &a.AppliedAt, &a.Checksum, &a.AppliedBy); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ApplyMigrations runs every pending migration in its own transaction and
// records it in schema_migrations. It returns the number applied.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, all []migrations.Migration, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	applied, err := AppliedMigrations(ctx, pool)
	if err != nil {
		return 0, err
	}
	pending, err := migrations.Pending(all, applied)
	if err != nil {
		return 0, fmt.Errorf("ApplyMigrations: %w", err)
	}

	for i, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")

		tx, err := pool.Begin(ctx)
		if err != nil {
			return i, fmt.Errorf("ApplyMigrations: begin: %w", err)
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			_ = tx.Rollback(ctx)
			return i, fmt.Errorf("ApplyMigrations: migration %04d_%s failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name, checksum, applied_by) VALUES ($1, $2, $3, $4)`,
			m.Version, m.Name, m.Checksum, appliedBy,
		); err != nil {
			_ = tx.Rollback(ctx)
			return i, fmt.Errorf("ApplyMigrations: record %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return i, fmt.Errorf("ApplyMigrations: commit %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return len(pending), nil
}
