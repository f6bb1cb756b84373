package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const categoriesTable = "ledger_categories"

// ListActiveCategoriesWithClient returns all active categories ordered by
// sort_order, then name, using the provided BigQuery client.
func ListActiveCategoriesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]CategoryRow, error) {
	q := client.Query(`
		SELECT
		  category_id,
		  name,
		  color,
		  icon,
		  allowed_types,
		  is_active
		FROM ` + ds.table(categoriesTable) + `
		WHERE is_active = TRUE
		ORDER BY sort_order, name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveCategories: query read: %w", err)
	}

	var rows []CategoryRow
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveCategories: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}
