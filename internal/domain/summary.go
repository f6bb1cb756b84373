package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategorySummary aggregates transactions of one type within one category.
// CategoryID is nil for the uncategorized bucket.
type CategorySummary struct {
	CategoryID       *string         `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	Color            string          `json:"color"`
	TransactionType  TransactionType `json:"transaction_type"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int64           `json:"transaction_count"`
}

// DashboardSummary is derived from the ledger on every request.
type DashboardSummary struct {
	From               *time.Time        `json:"from,omitempty"`
	To                 *time.Time        `json:"to,omitempty"`
	TotalIncome        decimal.Decimal   `json:"total_income"`
	TotalExpenses      decimal.Decimal   `json:"total_expenses"`
	NetAmount          decimal.Decimal   `json:"net_amount"`
	CategorySummaries  []CategorySummary `json:"category_summaries"`
	RecentTransactions []Transaction     `json:"recent_transactions"`
}

// Dashboard bundles the summary with the progress of active budgets.
type Dashboard struct {
	Summary DashboardSummary `json:"summary"`
	Budgets []BudgetProgress `json:"budgets"`
}
