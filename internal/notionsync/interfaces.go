package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService defines the subset of the Notion API the ledger mirror needs.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase returns one page of database results starting at req.StartCursor.
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// ArchivePage archives the page with the given ID.
	ArchivePage(ctx context.Context, pageID string) error
}
