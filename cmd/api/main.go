package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/api"
	"github.com/dvloznov/fx-backoffice/internal/cache"
	"github.com/dvloznov/fx-backoffice/internal/config"
	"github.com/dvloznov/fx-backoffice/internal/directory"
	"github.com/dvloznov/fx-backoffice/internal/editor"
	"github.com/dvloznov/fx-backoffice/internal/infra"
	"github.com/dvloznov/fx-backoffice/internal/jobs/inmemory"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/notionexport"
	"github.com/dvloznov/fx-backoffice/internal/report"
	"github.com/dvloznov/fx-backoffice/internal/reportexport"
	"github.com/dvloznov/fx-backoffice/internal/store"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	var (
		port    = flag.String("port", cfg.HTTPPort, "HTTP server port (or set HTTP_PORT env)")
		workers = flag.Int("workers", inmemory.DefaultWorkers, "Number of export job workers")
	)
	flag.Parse()
	cfg.HTTPPort = *port

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Initialize storage
	st, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	var currencies store.CurrencyStore = st
	if cfg.RedisAddr != "" {
		c := cache.NewCache(strings.Split(cfg.RedisAddr, ","), cfg.RedisPass, strings.Contains(cfg.RedisAddr, ","))
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable; currency cache will fall through to the store")
		}
		currencies = cache.NewCurrencyCatalog(c, st, cfg.CurrencyCacheTTL)
	}

	var aggOpts []aggregator.Option
	if cfg.InverseCurrency != "" {
		aggOpts = append(aggOpts, aggregator.WithInverseCurrency(cfg.InverseCurrency))
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid report timezone")
	}
	aggOpts = append(aggOpts, aggregator.WithLocation(loc))
	agg := aggregator.New(aggOpts...)
	log.Info().
		Str("inverse_currency", agg.InverseCurrency()).
		Str("timezone", loc.String()).
		Msg("Report aggregation configured")

	reports := report.New(st, st, currencies, agg, report.WithLocalCurrencyLabel(cfg.LocalCurrencyLabel))
	dir := directory.New(st, st, agg)
	ed := editor.New(st, st, editor.WithBackupWindow(cfg.BackupWindowDays))

	// Export destinations
	var uploader reportexport.Uploader
	if cfg.ExportBucket != "" {
		gcs, err := reportexport.NewGCSUploader(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		log.Warn().Msg("No EXPORT_BUCKET configured - GCS exports will be disabled")
	}

	var notion notionexport.NotionService
	if cfg.NotionToken != "" && cfg.NotionReportsDB != "" {
		notion = notionexport.NewNotionClient(cfg.NotionToken)
	} else {
		log.Warn().Msg("NOTION_TOKEN or NOTION_REPORTS_DB not set - Notion exports will be disabled")
	}

	runner := reportexport.NewRunner(reports, uploader, cfg.ExportBucket, notion, cfg.NotionReportsDB)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", *workers).Msg("Starting export workers")
	if err := jobQueue.Start(workerCtx, runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	handler := api.NewRouter(api.Deps{
		Customers:      st,
		Transactions:   st,
		Currencies:     currencies,
		Directory:      dir,
		Editor:         ed,
		Reports:        reports,
		Checker:        runner,
		Publisher:      jobQueue,
		Jobs:           jobStore,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", cfg.StoreDriver).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
