package export

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/notionsync"
)

// Sink is an export destination.
type Sink interface {
	// Name identifies the sink in job results and logs.
	Name() string

	// Write delivers the snapshot and returns a short description of
	// where it went.
	Write(ctx context.Context, snap *Snapshot) (string, error)
}

// TransactionInserter streams transaction rows into the warehouse.
type TransactionInserter interface {
	InsertTransactions(ctx context.Context, rows []*bigquery.TransactionRow) error
}

// BigQuerySink appends the snapshot's transactions to the warehouse.
// Re-exports produce duplicate rows that the ledger_current view collapses.
type BigQuerySink struct {
	inserter TransactionInserter
}

// NewBigQuerySink creates a sink over inserter, typically a *bigquery.Repository.
func NewBigQuerySink(inserter TransactionInserter) *BigQuerySink {
	return &BigQuerySink{inserter: inserter}
}

func (s *BigQuerySink) Name() string { return "bigquery" }

func (s *BigQuerySink) Write(ctx context.Context, snap *Snapshot) (string, error) {
	rows := make([]*bigquery.TransactionRow, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		tx.UserID = snap.UserID
		rows = append(rows, bigquery.NewTransactionRow(tx, snap.CategoryName(tx), snap.GeneratedAt))
	}
	if len(rows) == 0 {
		return "no rows", nil
	}
	if err := s.inserter.InsertTransactions(ctx, rows); err != nil {
		return "", fmt.Errorf("BigQuerySink: %w", err)
	}
	return fmt.Sprintf("%d rows", len(rows)), nil
}

// Uploader stores objects in a bucket.
type Uploader interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error)
}

// GCSSink writes the snapshot as a JSON object.
type GCSSink struct {
	uploader Uploader
	bucket   string
}

// NewGCSSink creates a sink writing into bucket.
func NewGCSSink(uploader Uploader, bucket string) *GCSSink {
	return &GCSSink{uploader: uploader, bucket: bucket}
}

func (s *GCSSink) Name() string { return "gcs" }

func (s *GCSSink) Write(ctx context.Context, snap *Snapshot) (string, error) {
	data, err := snap.ToJSON()
	if err != nil {
		return "", fmt.Errorf("GCSSink: %w", err)
	}
	uri, err := s.uploader.UploadBytes(ctx, s.bucket, ObjectName(snap), data, "application/json")
	if err != nil {
		return "", fmt.Errorf("GCSSink: %w", err)
	}
	return uri, nil
}

// ObjectName is the storage path of a snapshot: snapshots/<user>/<timestamp>.json.
func ObjectName(snap *Snapshot) string {
	return fmt.Sprintf("snapshots/%s/%s.json", snap.UserID, snap.GeneratedAt.UTC().Format("20060102T150405Z"))
}

// NotionSink mirrors the snapshot's transactions into a Notion database.
type NotionSink struct {
	client     notionsync.NotionService
	databaseID string
}

// NewNotionSink creates a sink for the given database.
func NewNotionSink(client notionsync.NotionService, databaseID string) *NotionSink {
	return &NotionSink{client: client, databaseID: databaseID}
}

func (s *NotionSink) Name() string { return "notion" }

// Write fails when any page could not be written, so that a retried job
// picks up the remainder. Mirroring is idempotent.
func (s *NotionSink) Write(ctx context.Context, snap *Snapshot) (string, error) {
	txs := make([]domain.Transaction, len(snap.Transactions))
	for i, tx := range snap.Transactions {
		tx.UserID = snap.UserID
		txs[i] = tx
	}
	result, err := notionsync.MirrorTransactions(ctx, s.client, s.databaseID, snap.UserID, txs, snap.CategoryName, false)
	if err != nil {
		return "", fmt.Errorf("NotionSink: %w", err)
	}
	detail := fmt.Sprintf("created=%d archived=%d skipped=%d", result.Created, result.Archived, result.Skipped)
	if result.Failed > 0 {
		return detail, fmt.Errorf("NotionSink: %d pages failed", result.Failed)
	}
	return detail, nil
}

var (
	_ Sink = (*BigQuerySink)(nil)
	_ Sink = (*GCSSink)(nil)
	_ Sink = (*NotionSink)(nil)
)
