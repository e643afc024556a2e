package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/fx-backoffice/internal/config"
	infraBQ "github.com/dvloznov/fx-backoffice/internal/infra/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/infra/postgres"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/migrations"
)

func main() {
	cfg := config.Load()

	var (
		driver        = flag.String("driver", cfg.StoreDriver, "Target backend: postgres or bigquery")
		databaseURL   = flag.String("database-url", cfg.DatabaseURL, "Postgres connection string")
		projectID     = flag.String("project", cfg.BQProject, "GCP project ID (bigquery)")
		datasetID     = flag.String("dataset", cfg.BQDataset, "BigQuery dataset ID")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "", "Path to migrations directory (default migrations/<driver>)")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	dir, err := resolveDir(*migrationsDir, *driver)
	if err != nil {
		log.Fatal().Err(err).Msg("Migrations directory not found")
	}

	vars := map[string]string{}
	if *driver == config.DriverBigQuery {
		if *projectID == "" {
			log.Fatal().Msg("Error: -project flag (or BQ_PROJECT) is required for bigquery")
		}
		vars = infraBQ.Dataset{ProjectID: *projectID, DatasetID: *datasetID}.MigrationVars()
	}

	all, skipped, err := migrations.Read(dir, vars)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("Skipping file with invalid format")
	}
	log.Info().Int("count", len(all)).Str("dir", dir).Msg("Found migration files")

	var applied int
	switch *driver {
	case config.DriverPostgres:
		if *databaseURL == "" {
			log.Fatal().Msg("Error: -database-url (or DATABASE_URL) is required for postgres")
		}
		pool, err := postgres.Connect(ctx, *databaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to postgres")
		}
		defer pool.Close()

		applied, err = postgres.ApplyMigrations(ctx, pool, all, *appliedBy)
		if err != nil {
			log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
		}

	case config.DriverBigQuery:
		s, err := infraBQ.NewStore(ctx, *projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer s.Close()
		log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

		applied, err = s.ApplyMigrations(ctx, all, *appliedBy)
		if err != nil {
			log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
		}

	default:
		log.Fatal().Str("driver", *driver).Msg("Error: -driver must be postgres or bigquery")
	}

	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", applied).Msg("Successfully applied migrations")
	}
}

// resolveDir finds the migrations directory, also trying from the repository
// root when run inside cmd/migrate.
func resolveDir(dir, driver string) (string, error) {
	if dir == "" {
		dir = filepath.Join("migrations", driver)
	}
	for _, candidate := range []string{dir, filepath.Join("..", "..", dir)} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}
