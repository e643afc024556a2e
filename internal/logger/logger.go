// Package logger builds the zerolog loggers shared by the API, the CLI and the
// export workers, and carries them through context.Context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a console logger writing to stdout.
func New() zerolog.Logger {
	return NewWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
}

// NewWithLevel creates the console logger filtered at the named level
// (debug, info, warn, error). Unknown or empty names fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return New().Level(lvl)
}

// NewWithWriter creates a JSON logger on w. Tests use it to inspect output.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a fresh console logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// ForActor tags a logger with the operator performing a mutation.
func ForActor(logger zerolog.Logger, actorID, label string) zerolog.Logger {
	ctx := logger.With().Str("actor_id", actorID)
	if label != "" && label != actorID {
		ctx = ctx.Str("actor", label)
	}
	return ctx.Logger()
}

// ForJob tags a logger with an export job and the report it covers.
// An empty customerID means the company-wide report.
func ForJob(logger zerolog.Logger, jobID, customerID string) zerolog.Logger {
	ctx := logger.With().Str("job_id", jobID)
	if customerID != "" {
		ctx = ctx.Str("customer_id", customerID)
	} else {
		ctx = ctx.Str("scope", "company")
	}
	return ctx.Logger()
}
