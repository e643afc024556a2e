// Package notionexport publishes report totals to a Notion database, one page
// per currency.
package notionexport

import (
	"context"
	"fmt"

	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/report"
	"github.com/jomei/notionapi"
)

// PageSize is the number of pages requested per database query.
const PageSize = 100

// PublishReport replaces the pages of any earlier export of the same report
// key with one page per currency line. It returns the created page ids.
func PublishReport(ctx context.Context, notion NotionService, databaseID string, r *report.Report) ([]string, error) {
	log := logger.FromContext(ctx)
	key := ReportKey(r)

	existing, err := queryAllPages(ctx, notion, databaseID)
	if err != nil {
		return nil, fmt.Errorf("PublishReport: %w", err)
	}

	var archived int
	for _, page := range existing {
		if extractReportKey(page) != key {
			continue
		}
		if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive previous report page")
			continue
		}
		archived++
	}

	lines := Lines(r)
	pageIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		page, err := notion.CreatePage(ctx, databaseID, LineToNotionProperties(key, r.Scope(), r.GeneratedAt, line))
		if err != nil {
			return pageIDs, fmt.Errorf("PublishReport: currency %s: %w", line.Currency, err)
		}
		pageIDs = append(pageIDs, string(page.ID))
	}

	log.Info().
		Str("report_key", key).
		Int("archived", archived).
		Int("created", len(pageIDs)).
		Msg("Published report to Notion")

	return pageIDs, nil
}

func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var (
		pages  []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return pages, nil
}
