// Package jobs describes report export jobs and the queue contracts the API
// and the export runner share.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/aggregator"
)

// Status is the lifecycle state of an export.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Destination is where an export is delivered.
type Destination string

const (
	DestinationGCS    Destination = "gcs"
	DestinationNotion Destination = "notion"
)

// DefaultMaxAttempts bounds how often a failing export is run.
const DefaultMaxAttempts = 3

// ErrNotFound is returned by Store.Get for an unknown id.
var ErrNotFound = errors.New("job not found")

// Export asks for a customer or company report to be rendered and shipped.
type Export struct {
	JobID string `json:"job_id"`

	// CustomerID selects a customer report. Empty means the company report.
	CustomerID   string            `json:"customer_id,omitempty"`
	Filter       aggregator.Filter `json:"filter"`
	Destinations []Destination     `json:"destinations"`

	// RequestedBy is the actor id that asked for the export.
	RequestedBy string `json:"requested_by,omitempty"`

	// Outputs, filled in by the runner.
	GCSURI        string   `json:"gcs_uri,omitempty"`
	NotionPageIDs []string `json:"notion_page_ids,omitempty"`

	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
}

// Wants reports whether d is one of the export's destinations.
func (e *Export) Wants(d Destination) bool {
	for _, x := range e.Destinations {
		if x == d {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with e.
func (e *Export) Clone() *Export {
	c := *e
	c.Destinations = append([]Destination(nil), e.Destinations...)
	c.NotionPageIDs = append([]string(nil), e.NotionPageIDs...)
	return &c
}

// Handler runs one attempt of an export. A returned error schedules another
// attempt until MaxAttempts is reached.
type Handler func(ctx context.Context, job *Export) error

// Publisher accepts exports for asynchronous processing.
type Publisher interface {
	Enqueue(ctx context.Context, job *Export) error
	Close() error
}

// Consumer runs queued exports through a Handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	// Stop waits for in-flight exports to finish or ctx to expire.
	Stop(ctx context.Context) error
}

// Store keeps export state for status polling.
type Store interface {
	Save(ctx context.Context, job *Export) error
	Get(ctx context.Context, jobID string) (*Export, error)
	// List returns exports newest first.
	List(ctx context.Context, filter Filter) ([]*Export, error)
}

// Filter narrows Store.List.
type Filter struct {
	CustomerID string
	Status     Status
	Limit      int
	Offset     int
}
