package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	BookedTS        time.Time  `bigquery:"booked_ts"`        // REQUIRED, full instant of the transaction date

	Amount          *big.Rat `bigquery:"amount"`           // REQUIRED NUMERIC, always positive
	SignedAmount    *big.Rat `bigquery:"signed_amount"`    // REQUIRED NUMERIC, negative for expenses
	TransactionType string   `bigquery:"transaction_type"` // REQUIRED: income | expense

	Description string              `bigquery:"description"` // REQUIRED
	Notes       bigquery.NullString `bigquery:"notes"`       // NULLABLE

	CategoryID   bigquery.NullString `bigquery:"category_id"`   // NULLABLE
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE

	AICategorized bool `bigquery:"ai_categorized"`

	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// NewTransactionRow maps a ledger transaction to its warehouse row.
// categoryName may be empty for uncategorized transactions.
func NewTransactionRow(tx domain.Transaction, categoryName string, exported time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		TransactionDate: civil.DateOf(tx.Date.UTC()),
		BookedTS:        tx.Date.UTC(),
		Amount:          tx.Amount.Rat(),
		SignedAmount:    tx.Signed().Rat(),
		TransactionType: string(tx.Type),
		Description:     tx.Description,
		AICategorized:   tx.AICategorized,
		CreatedTS:       tx.CreatedAt.UTC(),
		ExportedTS:      exported.UTC(),
	}
	if tx.Notes != "" {
		row.Notes = bigquery.NullString{StringVal: tx.Notes, Valid: true}
	}
	if tx.HasCategory() {
		row.CategoryID = bigquery.NullString{StringVal: *tx.CategoryID, Valid: true}
	}
	if categoryName != "" {
		row.CategoryName = bigquery.NullString{StringVal: categoryName, Valid: true}
	}
	return row
}

type DeletionRow struct {
	TransactionID string    `bigquery:"transaction_id"` // REQUIRED
	UserID        string    `bigquery:"user_id"`        // REQUIRED
	DeletedTS     time.Time `bigquery:"deleted_ts"`     // REQUIRED
}
