package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// Snapshot is a point-in-time copy of one user's ledger.
type Snapshot struct {
	UserID        string                  `json:"user_id"`
	GeneratedAt   time.Time               `json:"generated_at"`
	Transactions  []domain.Transaction    `json:"transactions"`
	Budgets       []domain.Budget         `json:"budgets"`
	Summary       domain.DashboardSummary `json:"summary"`
	CategoryNames map[string]string       `json:"category_names"`
}

// BuildSnapshot reads every transaction and budget of the service's user.
// The summary covers the whole ledger.
func BuildSnapshot(ctx context.Context, svc *ledger.Service) (*Snapshot, error) {
	txs, err := svc.List(ctx, ledger.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("BuildSnapshot: listing transactions: %w", err)
	}
	budgets, err := svc.ListBudgets(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("BuildSnapshot: listing budgets: %w", err)
	}
	summary, err := svc.Summarize(ctx, ledger.SummaryOptions{})
	if err != nil {
		return nil, fmt.Errorf("BuildSnapshot: summarizing: %w", err)
	}

	names := make(map[string]string)
	for _, tx := range txs {
		if tx.HasCategory() {
			names[*tx.CategoryID] = svc.CategoryName(tx)
		}
	}

	return &Snapshot{
		UserID:        svc.UserID(),
		GeneratedAt:   svc.Now().UTC(),
		Transactions:  txs,
		Budgets:       budgets,
		Summary:       summary,
		CategoryNames: names,
	}, nil
}

// CategoryName returns the display name recorded for tx's category, or
// the raw id when the category was not resolvable at snapshot time.
func (s *Snapshot) CategoryName(tx domain.Transaction) string {
	if !tx.HasCategory() {
		return ""
	}
	if name, ok := s.CategoryNames[*tx.CategoryID]; ok {
		return name
	}
	return *tx.CategoryID
}

// ToJSON serializes the snapshot for object storage.
func (s *Snapshot) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("Snapshot.ToJSON: %w", err)
	}
	return data, nil
}
