package bigquery

import (
	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

type CategoryRow struct {
	CategoryID string `bigquery:"category_id"` // REQUIRED
	Name       string `bigquery:"name"`        // REQUIRED

	Color bigquery.NullString `bigquery:"color"` // NULLABLE
	Icon  bigquery.NullString `bigquery:"icon"`  // NULLABLE

	AllowedTypes []string `bigquery:"allowed_types"` // REPEATED STRING

	IsActive bigquery.NullBool `bigquery:"is_active"` // NULLABLE
}

// ToDomain converts the row into a registry category. Validation is left
// to categories.New.
func (r CategoryRow) ToDomain() domain.Category {
	c := domain.Category{
		ID:   r.CategoryID,
		Name: r.Name,
	}
	if r.Color.Valid {
		c.Color = r.Color.StringVal
	}
	if r.Icon.Valid {
		c.Icon = r.Icon.StringVal
	}
	for _, t := range r.AllowedTypes {
		c.AllowedTypes = append(c.AllowedTypes, domain.TransactionType(t))
	}
	return c
}
