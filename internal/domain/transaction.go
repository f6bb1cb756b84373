package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction. Amounts are always
// stored positive; the type carries the sign.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// ParseTransactionType normalises s and reports whether it names a known type.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single recorded economic event in a user's ledger.
// Records are immutable once created; the only mutation is deletion.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"transaction_type"`
	Description   string          `json:"description"`
	CategoryID    *string         `json:"category_id"`
	Date          time.Time       `json:"date"`
	Notes         string          `json:"notes"`
	AICategorized bool            `json:"ai_categorized"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the amount with the direction applied: positive for
// income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// HasCategory reports whether the transaction references a category.
func (t Transaction) HasCategory() bool {
	return t.CategoryID != nil && *t.CategoryID != ""
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
