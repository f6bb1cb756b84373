package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SummaryOptions restricts the totals and category summaries to a date
// window. The recent feed always covers the whole ledger. RecentLimit <= 0
// uses the ledger default.
type SummaryOptions struct {
	From        *time.Time
	To          *time.Time
	RecentLimit int
}

// MonthWindow returns the inclusive bounds of the calendar month containing now.
func MonthWindow(now time.Time) (from, to time.Time) {
	from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to = from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return from, to
}

type summaryKey struct {
	categoryID string
	typ        domain.TransactionType
}

// Summarize derives the dashboard summary from the current store contents.
// Nothing is cached: every call reads the store again.
//
// Category summaries cover both income and expense, one entry per
// (category, type) pair, with an "Uncategorized" entry per type for
// transactions without a category.
func (s *Service) Summarize(ctx context.Context, opts SummaryOptions) (domain.DashboardSummary, error) {
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return domain.DashboardSummary{}, domain.NewValidationError("end_date", "must not be before start date")
	}

	txs, err := s.transactions.ListTransactions(ctx, s.userID, StoreFilter{})
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("Summarize: listing transactions: %w", err)
	}
	SortTransactions(txs)

	limit := opts.RecentLimit
	if limit <= 0 {
		limit = s.recentLimit
	}

	summary := domain.DashboardSummary{
		From:               opts.From,
		To:                 opts.To,
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		CategorySummaries:  []domain.CategorySummary{},
		RecentTransactions: []domain.Transaction{},
	}

	window := StoreFilter{From: opts.From, To: opts.To}
	index := make(map[summaryKey]int)
	for _, tx := range txs {
		if !window.Matches(tx) {
			continue
		}
		switch tx.Type {
		case domain.TransactionTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		case domain.TransactionTypeExpense:
			summary.TotalExpenses = summary.TotalExpenses.Add(tx.Amount)
		}

		key := summaryKey{typ: tx.Type}
		if tx.HasCategory() {
			key.categoryID = *tx.CategoryID
		}
		i, ok := index[key]
		if !ok {
			name, color := s.categoryLabel(tx.CategoryID)
			summary.CategorySummaries = append(summary.CategorySummaries, domain.CategorySummary{
				CategoryID:      domain.StringPtr(key.categoryID),
				CategoryName:    name,
				Color:           color,
				TransactionType: tx.Type,
				TotalAmount:     decimal.Zero,
			})
			i = len(summary.CategorySummaries) - 1
			index[key] = i
		}
		cs := &summary.CategorySummaries[i]
		cs.TotalAmount = cs.TotalAmount.Add(tx.Amount)
		cs.TransactionCount++
	}

	summary.NetAmount = summary.TotalIncome.Sub(summary.TotalExpenses)

	if len(txs) > limit {
		txs = txs[:limit]
	}
	summary.RecentTransactions = append(summary.RecentTransactions, txs...)

	return summary, nil
}

// Dashboard computes the summary and the progress of all active budgets
// concurrently.
func (s *Service) Dashboard(ctx context.Context, opts SummaryOptions, now time.Time) (domain.Dashboard, error) {
	var dash domain.Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.Summarize(gctx, opts)
		if err != nil {
			return err
		}
		dash.Summary = summary
		return nil
	})
	g.Go(func() error {
		progress, err := s.ProgressAll(gctx, now)
		if err != nil {
			return err
		}
		dash.Budgets = progress
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, fmt.Errorf("Dashboard: %w", err)
	}
	if dash.Budgets == nil {
		dash.Budgets = []domain.BudgetProgress{}
	}
	return dash, nil
}

// Now returns the ledger clock's current time.
func (s *Service) Now() time.Time { return s.clock.current() }
