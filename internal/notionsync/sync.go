package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize is the page size used when reading the mirror database.
	BatchSize = 100
)

// CategoryNamer resolves the display name of a transaction's category.
type CategoryNamer func(tx domain.Transaction) string

// SyncResult counts what a mirror run did (or would do, in dry-run mode).
type SyncResult struct {
	Created  int `json:"created"`
	Archived int `json:"archived"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// MirrorTransactions makes the Notion database reflect txs for userID:
// pages for transactions that no longer exist are archived, missing pages
// are created, and existing ones are left alone since transactions are
// immutable. Pages belonging to other users are never touched.
// Per-page failures are logged and counted; only a failure to read the
// database aborts the run.
func MirrorTransactions(ctx context.Context, notionClient NotionService, databaseID, userID string, txs []domain.Transaction, categoryName CategoryNamer, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx).With().
		Str("user_id", userID).
		Bool("dry_run", dryRun).
		Logger()

	var result SyncResult
	if databaseID == "" {
		return result, fmt.Errorf("MirrorTransactions: %w", &domain.ValidationError{Field: "database_id", Message: "is required"})
	}

	log.Info().Int("transaction_count", len(txs)).Msg("Starting transaction mirror to Notion")

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	pages, err := queryAllNotionPages(ctx, notionClient, databaseID)
	if err != nil {
		return result, fmt.Errorf("MirrorTransactions: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]bool)
	for _, page := range pages {
		if extractUserID(page) != userID {
			continue
		}
		txID := extractTransactionID(page)
		if txID != "" && valid[txID] && !existing[txID] {
			existing[txID] = true
			continue
		}

		// Stale, unidentifiable or duplicate page.
		if dryRun {
			log.Info().
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			result.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			result.Failed++
			continue
		}
		result.Archived++
	}

	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("MirrorTransactions: %w", err)
		}
		if existing[tx.ID] {
			result.Skipped++
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
			result.Created++
			continue
		}

		name := ""
		if categoryName != nil {
			name = categoryName(tx)
		}
		page, err := notionClient.CreatePage(ctx, databaseID, TransactionToNotionProperties(tx, name))
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.ID).
				Msg("Failed to create Notion page")
			result.Failed++
			continue
		}
		log.Debug().
			Str("transaction_id", tx.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("archived", result.Archived).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Transaction mirror completed")

	return result, nil
}

// queryAllNotionPages reads every page of the database, following cursors.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: BatchSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

func extractTransactionID(page notionapi.Page) string {
	return richTextValue(page, PropTransactionID)
}

func extractUserID(page notionapi.Page) string {
	return richTextValue(page, PropUserID)
}

// richTextValue returns the plain text of a rich-text property, or "" when
// the property is missing or of another type.
func richTextValue(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	var rt []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		rt = p.RichText
	case notionapi.RichTextProperty:
		rt = p.RichText
	}
	if len(rt) == 0 {
		return ""
	}
	if rt[0].PlainText != "" {
		return rt[0].PlainText
	}
	if rt[0].Text != nil {
		return rt[0].Text.Content
	}
	return ""
}
