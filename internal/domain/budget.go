package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// BudgetPeriod is the nominal length of a budget.
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is a known period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

// EndFrom returns the last day (inclusive) of a period starting on start.
func (p BudgetPeriod) EndFrom(start civil.Date) civil.Date {
	switch p {
	case BudgetPeriodWeekly:
		return start.AddDays(6)
	case BudgetPeriodYearly:
		return start.AddYears(1).AddDays(-1)
	default:
		return start.AddMonths(1).AddDays(-1)
	}
}

// Budget is a spending ceiling over [StartDate, EndDate] for one category,
// or for all categories when CategoryID is nil.
type Budget struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Period     BudgetPeriod    `json:"period"`
	CategoryID *string         `json:"category_id"`
	StartDate  civil.Date      `json:"start_date"`
	EndDate    civil.Date      `json:"end_date"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Covers reports whether t falls within the budget's date range and category.
// Only expenses count towards a budget.
func (b Budget) Covers(t Transaction) bool {
	if t.Type != TransactionTypeExpense {
		return false
	}
	d := civil.DateOf(t.Date.UTC())
	if d.Before(b.StartDate) || d.After(b.EndDate) {
		return false
	}
	if b.CategoryID == nil {
		return true
	}
	return t.CategoryID != nil && *t.CategoryID == *b.CategoryID
}

// Severity bands budget consumption for presentation.
type Severity string

const (
	SeverityNominal  Severity = "nominal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SeverityFor maps a consumption percentage onto a band.
func SeverityFor(percentage float64) Severity {
	switch {
	case percentage >= 90:
		return SeverityCritical
	case percentage >= 75:
		return SeverityWarning
	default:
		return SeverityNominal
	}
}

// BudgetProgress is the derived consumption of a budget at a point in time.
type BudgetProgress struct {
	Budget        Budget          `json:"budget"`
	Spent         decimal.Decimal `json:"spent"`
	Remaining     decimal.Decimal `json:"remaining"`
	Percentage    float64         `json:"percentage"`
	DaysRemaining int             `json:"days_remaining"`
	Severity      Severity        `json:"severity"`
}
