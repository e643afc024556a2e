package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/migrations"
	"google.golang.org/api/iterator"
)

const schemaMigrationsTable = "schema_migrations"

// AppliedMigrationRow mirrors a row of schema_migrations.
type AppliedMigrationRow struct {
	Version   int64               `bigquery:"version"`    // REQUIRED
	Name      string              `bigquery:"name"`       // REQUIRED
	AppliedAt time.Time           `bigquery:"applied_at"` // REQUIRED
	Checksum  bigquery.NullString `bigquery:"checksum"`   // NULLABLE
	AppliedBy bigquery.NullString `bigquery:"applied_by"` // NULLABLE
}

// MigrationVars are the placeholders substituted in migrations/bigquery files.
func (d Dataset) MigrationVars() map[string]string {
	return map[string]string{
		"PROJECT_ID": d.ProjectID,
		"DATASET_ID": d.DatasetID,
	}
}

// EnsureSchemaMigrationsTable creates schema_migrations if it does not exist.
func EnsureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, ds Dataset) error {
	q := client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)`, ds.Table(schemaMigrationsTable)))

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("EnsureSchemaMigrationsTable: %w", err)
	}
	return nil
}

// AppliedMigrationsWithClient lists rows of schema_migrations, creating the table if needed.
func AppliedMigrationsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]migrations.Applied, error) {
	if err := EnsureSchemaMigrationsTable(ctx, client, ds); err != nil {
		return nil, err
	}

	q := client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC`, ds.Table(schemaMigrationsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrationsWithClient: reading applied migrations: %w", err)
	}

	var applied []migrations.Applied
	for {
		var row AppliedMigrationRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("AppliedMigrationsWithClient: iterating results: %w", err)
		}
		applied = append(applied, migrations.Applied{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

// ApplyMigrationsWithClient runs every pending migration and records it in
// schema_migrations. BigQuery has no transactional DDL, so a failure leaves
// earlier migrations applied and recorded. It returns the number applied.
func ApplyMigrationsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, all []migrations.Migration, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	applied, err := AppliedMigrationsWithClient(ctx, client, ds)
	if err != nil {
		return 0, err
	}
	pending, err := migrations.Pending(all, applied)
	if err != nil {
		return 0, fmt.Errorf("ApplyMigrationsWithClient: %w", err)
	}

	for i, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")

		if _, err := runDML(ctx, client.Query(m.SQL)); err != nil {
			return i, fmt.Errorf("ApplyMigrationsWithClient: migration %04d_%s failed: %w", m.Version, m.Name, err)
		}

		record := client.Query(fmt.Sprintf(`
			INSERT INTO %s (version, name, applied_at, checksum, applied_by)
			VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`,
			ds.Table(schemaMigrationsTable)))
		record.Parameters = []bigquery.QueryParameter{
			{Name: "version", Value: m.Version},
			{Name: "name", Value: m.Name},
			{Name: "checksum", Value: m.Checksum},
			{Name: "applied_by", Value: appliedBy},
		}
		if _, err := runDML(ctx, record); err != nil {
			return i, fmt.Errorf("ApplyMigrationsWithClient: record %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return len(pending), nil
}

// ApplyMigrations applies pending migrations with the store's client.
func (s *Store) ApplyMigrations(ctx context.Context, all []migrations.Migration, appliedBy string) (int, error) {
	return ApplyMigrationsWithClient(ctx, s.client, s.ds, all, appliedBy)
}

// Dataset returns the dataset the store reads and writes.
func (s *Store) Dataset() Dataset {
	return s.ds
}
