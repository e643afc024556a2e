// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverBigQuery = "bigquery"
)

// Config holds every setting shared by the binaries under cmd/.
type Config struct {
	HTTPPort       string
	LogLevel       string
	AllowedOrigins []string

	StoreDriver string
	DatabaseURL string
	BQProject   string
	BQDataset   string

	RedisAddr        string
	RedisPass        string
	CurrencyCacheTTL time.Duration

	ExportBucket    string
	NotionToken     string
	NotionReportsDB string

	InverseCurrency    string
	LocalCurrencyLabel string
	BackupWindowDays   int
	ReportTimezone     string
}

// Load reads .env files (when present) and then the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)

	return Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DatabaseURL: getEnv("DATABASE_URL", databaseURLFromParts()),
		BQProject:   getEnv("BQ_PROJECT", ""),
		BQDataset:   getEnv("BQ_DATASET", "fx_backoffice"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPass:        getEnv("REDIS_PASS", ""),
		CurrencyCacheTTL: getEnvDuration("CURRENCY_CACHE_TTL", 10*time.Minute),

		ExportBucket:    getEnv("EXPORT_BUCKET", ""),
		NotionToken:     getEnv("NOTION_TOKEN", ""),
		NotionReportsDB: getEnv("NOTION_REPORTS_DB", ""),

		InverseCurrency:    getEnv("INVERSE_CURRENCY", ""),
		LocalCurrencyLabel: getEnv("LOCAL_CURRENCY_LABEL", ""),
		BackupWindowDays:   getEnvInt("BACKUP_WINDOW_DAYS", 30),
		ReportTimezone:     getEnv("REPORT_TIMEZONE", "UTC"),
	}
}

// Validate checks that the selected store driver has what it needs.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL or DB_HOST/DB_NAME required for postgres driver")
		}
	case DriverBigQuery:
		if c.BQProject == "" {
			return fmt.Errorf("config: BQ_PROJECT required for bigquery driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.BackupWindowDays <= 0 {
		return fmt.Errorf("config: BACKUP_WINDOW_DAYS must be positive, got %d", c.BackupWindowDays)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves ReportTimezone, the zone report dates are counted in.
func (c Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.HTTPPort, ":")
}

func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		host,
		getEnv("DB_PORT", "5432"),
		name,
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
