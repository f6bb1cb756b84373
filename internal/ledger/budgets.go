package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BudgetInput is the caller-supplied part of a new budget. When EndDate is
// nil it is derived from Period; Period defaults to monthly and IsActive to
// true.
type BudgetInput struct {
	Name       string              `json:"name"`
	Amount     decimal.Decimal     `json:"amount"`
	Period     domain.BudgetPeriod `json:"period"`
	CategoryID *string             `json:"category_id"`
	StartDate  civil.Date          `json:"start_date"`
	EndDate    *civil.Date         `json:"end_date"`
	IsActive   *bool               `json:"is_active"`
}

// CreateBudget validates and stores a budget definition.
func (s *Service) CreateBudget(ctx context.Context, in BudgetInput) (domain.Budget, error) {
	if s.budgets == nil {
		return domain.Budget{}, fmt.Errorf("CreateBudget: budget store not configured")
	}

	b, err := s.validateBudget(in)
	if err != nil {
		return domain.Budget{}, err
	}
	b.ID = uuid.New().String()
	b.UserID = s.userID
	b.CreatedAt = s.clock.next()

	if err := s.budgets.InsertBudget(ctx, b); err != nil {
		return domain.Budget{}, fmt.Errorf("CreateBudget: inserting budget: %w", err)
	}

	s.log.Info().
		Str("budget_id", b.ID).
		Str("amount", b.Amount.String()).
		Stringer("start_date", b.StartDate).
		Stringer("end_date", b.EndDate).
		Msg("Budget created")

	return b, nil
}

func (s *Service) validateBudget(in BudgetInput) (domain.Budget, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Budget{}, domain.NewValidationError("name", "must not be empty")
	}
	if !in.Amount.IsPositive() {
		return domain.Budget{}, domain.NewValidationError("amount", "must be greater than zero")
	}

	period := in.Period
	if period == "" {
		period = domain.BudgetPeriodMonthly
	}
	if !period.Valid() {
		return domain.Budget{}, domain.NewValidationError("period", "must be weekly, monthly or yearly")
	}

	if !in.StartDate.IsValid() {
		return domain.Budget{}, domain.NewValidationError("start_date", "is required")
	}
	end := period.EndFrom(in.StartDate)
	if in.EndDate != nil {
		if !in.EndDate.IsValid() {
			return domain.Budget{}, domain.NewValidationError("end_date", "is not a valid date")
		}
		end = *in.EndDate
	}
	if end.Before(in.StartDate) {
		return domain.Budget{}, domain.NewValidationError("end_date", "must not be before start date")
	}

	var categoryID *string
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) != "" {
		id := strings.TrimSpace(*in.CategoryID)
		cat, ok := s.registry.Get(id)
		if !ok {
			return domain.Budget{}, domain.NewValidationError("category_id", "unknown category %q", id)
		}
		if !cat.Allows(domain.TransactionTypeExpense) {
			return domain.Budget{}, domain.NewValidationError("category_id", "category %q does not accept expenses", cat.Name)
		}
		categoryID = &id
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return domain.Budget{
		Name:       name,
		Amount:     in.Amount.Round(2),
		Period:     period,
		CategoryID: categoryID,
		StartDate:  in.StartDate,
		EndDate:    end,
		IsActive:   active,
	}, nil
}

// GetBudget returns one budget or a *domain.NotFoundError.
func (s *Service) GetBudget(ctx context.Context, id string) (domain.Budget, error) {
	if s.budgets == nil {
		return domain.Budget{}, fmt.Errorf("GetBudget: budget store not configured")
	}
	b, err := s.budgets.GetBudget(ctx, s.userID, id)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("GetBudget: %w", err)
	}
	return b, nil
}

// ListBudgets returns the user's budgets, optionally only the active ones.
func (s *Service) ListBudgets(ctx context.Context, activeOnly bool) ([]domain.Budget, error) {
	if s.budgets == nil {
		return nil, nil
	}
	all, err := s.budgets.ListBudgets(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: %w", err)
	}
	if !activeOnly {
		return all, nil
	}
	active := all[:0]
	for _, b := range all {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return active, nil
}

// DeleteBudget removes a budget definition.
func (s *Service) DeleteBudget(ctx context.Context, id string) error {
	if s.budgets == nil {
		return fmt.Errorf("DeleteBudget: budget store not configured")
	}
	if err := s.budgets.DeleteBudget(ctx, s.userID, id); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	s.log.Info().Str("budget_id", id).Msg("Budget deleted")
	return nil
}

// Progress computes how much of b has been consumed as of now by reading
// the user's expenses within the budget window.
func (s *Service) Progress(ctx context.Context, b domain.Budget, now time.Time) (domain.BudgetProgress, error) {
	from := b.StartDate.In(time.UTC)
	to := b.EndDate.AddDays(1).In(time.UTC).Add(-time.Nanosecond)

	filter := StoreFilter{Type: domain.TransactionTypeExpense, From: &from, To: &to}
	if b.CategoryID != nil {
		filter.CategoryID = *b.CategoryID
	}

	txs, err := s.transactions.ListTransactions(ctx, s.userID, filter)
	if err != nil {
		return domain.BudgetProgress{}, fmt.Errorf("Progress: listing transactions: %w", err)
	}
	return ComputeProgress(b, txs, now), nil
}

// ProgressAll computes progress for every active budget.
func (s *Service) ProgressAll(ctx context.Context, now time.Time) ([]domain.BudgetProgress, error) {
	budgets, err := s.ListBudgets(ctx, true)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := s.Progress(ctx, b, now)
		if err != nil {
			return nil, fmt.Errorf("ProgressAll: budget %s: %w", b.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ComputeProgress derives budget consumption from txs. Transactions outside
// the budget's window, category or type are ignored.
//
// percentage is clamped to [0, 100]; overspend shows as a negative
// remaining. days_remaining counts whole days from now until the start of
// the end date and is never negative.
func ComputeProgress(b domain.Budget, txs []domain.Transaction, now time.Time) domain.BudgetProgress {
	spent := decimal.Zero
	for _, tx := range txs {
		if b.Covers(tx) {
			spent = spent.Add(tx.Amount)
		}
	}

	percentage := 0.0
	if b.Amount.IsPositive() {
		pct := spent.Div(b.Amount).Mul(hundred)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		percentage = pct.Round(2).InexactFloat64()
	}

	days := int(math.Ceil(b.EndDate.In(time.UTC).Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}

	return domain.BudgetProgress{
		Budget:        b,
		Spent:         spent,
		Remaining:     b.Amount.Sub(spent),
		Percentage:    percentage,
		DaysRemaining: days,
		Severity:      domain.SeverityFor(percentage),
	}
}
