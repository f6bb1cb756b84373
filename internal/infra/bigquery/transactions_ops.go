package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	transactionsTable = "ledger_transactions"
	deletionsTable    = "ledger_deletions"
)

// InsertTransactionsWithClient streams rows into ledger_transactions. The
// transaction id is used as insert id so a redelivered event is deduplicated.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, r := range rows {
		savers = append(savers, &bigquery.StructSaver{Struct: r, InsertID: r.TransactionID})
	}

	table := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// RecordDeletionsWithClient appends tombstones to ledger_deletions. Streamed
// rows cannot be removed with DML straight away, so deletions are recorded
// and filtered out by the reporting views.
func RecordDeletionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*DeletionRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, r := range rows {
		savers = append(savers, &bigquery.StructSaver{Struct: r, InsertID: "del-" + r.TransactionID})
	}

	table := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(deletionsTable)
	if err := table.Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("RecordDeletions: inserting rows: %w", err)
	}
	return nil
}
