package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

// DefaultDatasetID is the dataset holding the ledger warehouse tables.
const DefaultDatasetID = "finance"

// Dataset identifies the project and dataset that warehouse tables live in.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// table returns the fully qualified, back-quoted name of a table.
func (d Dataset) table(name string) string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + name + "`"
}

// Repository is the BigQuery warehouse used for category catalogs and
// ledger exports. It holds a shared client to avoid creating a new
// connection for each operation.
type Repository struct {
	client  *bigquery.Client
	dataset Dataset
}

// NewRepository creates a Repository for the given project and dataset.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:  client,
		dataset: Dataset{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client exposes the underlying client, e.g. for schema migrations.
func (r *Repository) Client() *bigquery.Client { return r.client }

// Dataset returns the dataset the repository writes to.
func (r *Repository) Dataset() Dataset { return r.dataset }

// ListActiveCategories loads the active category catalog.
func (r *Repository) ListActiveCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := ListActiveCategoriesWithClient(ctx, r.client, r.dataset)
	if err != nil {
		return nil, err
	}
	cats := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.ToDomain())
	}
	return cats, nil
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.dataset, rows)
}

// RecordDeletions delegates to RecordDeletionsWithClient with the shared client.
func (r *Repository) RecordDeletions(ctx context.Context, rows []*DeletionRow) error {
	return RecordDeletionsWithClient(ctx, r.client, r.dataset, rows)
}
