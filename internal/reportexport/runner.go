// Package reportexport runs report export jobs: it renders a customer or
// company report and ships it to Cloud Storage and/or Notion.
package reportexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/jobs"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/notionexport"
	"github.com/dvloznov/fx-backoffice/internal/report"
)

// ErrDestinationUnavailable is returned for a destination that is not configured.
var ErrDestinationUnavailable = errors.New("export destination not configured")

// ReportSource builds reports. *report.Service implements it.
type ReportSource interface {
	Customer(ctx context.Context, customerID string, f aggregator.Filter) (*report.Report, error)
	Company(ctx context.Context, f aggregator.Filter) (*report.Report, error)
}

// Runner runs jobs.Export. A nil uploader or notion service
// disables that destination.
type Runner struct {
	reports  ReportSource
	uploader Uploader
	bucket   string
	notion   notionexport.NotionService
	notionDB string
}

// NewRunner creates a Runner.
func NewRunner(reports ReportSource, uploader Uploader, bucket string, notion notionexport.NotionService, notionDB string) *Runner {
	return &Runner{
		reports:  reports,
		uploader: uploader,
		bucket:   bucket,
		notion:   notion,
		notionDB: notionDB,
	}
}

// Check reports ErrDestinationUnavailable for any destination the runner
// cannot serve, and for an empty list.
func (r *Runner) Check(destinations []jobs.Destination) error {
	if len(destinations) == 0 {
		return fmt.Errorf("%w: no destination given", ErrDestinationUnavailable)
	}
	for _, d := range destinations {
		switch d {
		case jobs.DestinationGCS:
			if r.uploader == nil || r.bucket == "" {
				return fmt.Errorf("%w: %s", ErrDestinationUnavailable, d)
			}
		case jobs.DestinationNotion:
			if r.notion == nil || r.notionDB == "" {
				return fmt.Errorf("%w: %s", ErrDestinationUnavailable, d)
			}
		default:
			return fmt.Errorf("%w: unknown destination %q", ErrDestinationUnavailable, d)
		}
	}
	return nil
}

// Handle is a jobs.Handler. Outputs are recorded on the job.
func (r *Runner) Handle(ctx context.Context, export *jobs.Export) error {
	if err := r.Check(export.Destinations); err != nil {
		return fmt.Errorf("Handle: %w", err)
	}

	log := logger.ForJob(logger.FromContext(ctx), export.JobID, export.CustomerID)

	var (
		rep *report.Report
		err error
	)
	if export.CustomerID != "" {
		rep, err = r.reports.Customer(ctx, export.CustomerID, export.Filter)
	} else {
		rep, err = r.reports.Company(ctx, export.Filter)
	}
	if err != nil {
		return fmt.Errorf("Handle: build report: %w", err)
	}

	if export.Wants(jobs.DestinationGCS) {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("Handle: encode report: %w", err)
		}
		uri, err := r.uploader.Upload(ctx, r.bucket, ObjectName(export), "application/json", data)
		if err != nil {
			return fmt.Errorf("Handle: upload report: %w", err)
		}
		export.GCSURI = uri
		log.Info().Str("gcs_uri", uri).Int("bytes", len(data)).Msg("Report uploaded")
	}

	if export.Wants(jobs.DestinationNotion) {
		ids, err := notionexport.PublishReport(ctx, r.notion, r.notionDB, rep)
		if err != nil {
			return fmt.Errorf("Handle: publish to notion: %w", err)
		}
		export.NotionPageIDs = ids
	}

	return nil
}

// ObjectName is the storage path of an export:
// reports/YYYY/MM/DD/<customer id or "company">/<job id>.json
func ObjectName(job *jobs.Export) string {
	scope := job.CustomerID
	if scope == "" {
		scope = "company"
	}
	return fmt.Sprintf("reports/%s/%s/%s.json", job.CreatedAt.Format("2006/01/02"), scope, job.JobID)
}
