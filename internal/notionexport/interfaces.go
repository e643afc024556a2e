package notionexport

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService defines the Notion operations used by the exporter.
// It allows the exporter to be tested without the Notion API.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database.
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// ArchivePage archives a page.
	ArchivePage(ctx context.Context, pageID string) error
}
