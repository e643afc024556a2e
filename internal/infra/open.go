// Package infra selects the storage backend named in the configuration.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/fx-backoffice/internal/config"
	"github.com/dvloznov/fx-backoffice/internal/infra/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/infra/postgres"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/dvloznov/fx-backoffice/internal/store/memory"
)

// OpenStore connects to the backend selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	log := logger.FromContext(ctx)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return memory.NewStore(), nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return postgres.NewStore(pool), nil

	case config.DriverBigQuery:
		s, err := bigquery.NewStore(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	}

	return nil, fmt.Errorf("OpenStore: unknown store driver %q", cfg.StoreDriver)
}
