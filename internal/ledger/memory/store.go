package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// Store is an in-memory implementation of ledger.TransactionStore and
// ledger.BudgetStore. It is safe for concurrent use.
// Data is lost on restart; use the SQL store for persistence.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]map[string]domain.Transaction
	budgets      map[string]map[string]domain.Budget
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]map[string]domain.Transaction),
		budgets:      make(map[string]map[string]domain.Budget),
	}
}

// InsertTransaction implements ledger.TransactionStore.
func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userTxs, ok := s.transactions[tx.UserID]
	if !ok {
		userTxs = make(map[string]domain.Transaction)
		s.transactions[tx.UserID] = userTxs
	}
	if _, exists := userTxs[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	userTxs[tx.ID] = copyTransaction(tx)
	return nil
}

// GetTransaction implements ledger.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[userID][id]
	if !ok {
		return domain.Transaction{}, &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	return copyTransaction(tx), nil
}

// ListTransactions implements ledger.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter ledger.StoreFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.transactions[userID]))
	for _, tx := range s.transactions[userID] {
		if filter.Matches(tx) {
			result = append(result, copyTransaction(tx))
		}
	}
	return result, nil
}

// DeleteTransaction implements ledger.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[userID][id]; !ok {
		return &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	delete(s.transactions[userID], id)
	return nil
}

// InsertBudget implements ledger.BudgetStore.
func (s *Store) InsertBudget(ctx context.Context, b domain.Budget) error {
	if b.ID == "" {
		return fmt.Errorf("budget ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userBudgets, ok := s.budgets[b.UserID]
	if !ok {
		userBudgets = make(map[string]domain.Budget)
		s.budgets[b.UserID] = userBudgets
	}
	userBudgets[b.ID] = copyBudget(b)
	return nil
}

// GetBudget implements ledger.BudgetStore.
func (s *Store) GetBudget(ctx context.Context, userID, id string) (domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[userID][id]
	if !ok {
		return domain.Budget{}, &domain.NotFoundError{Resource: "budget", ID: id}
	}
	return copyBudget(b), nil
}

// ListBudgets implements ledger.BudgetStore.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Budget, 0, len(s.budgets[userID]))
	for _, b := range s.budgets[userID] {
		result = append(result, copyBudget(b))
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].StartDate.Compare(result[j].StartDate); c != 0 {
			return c < 0
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteBudget implements ledger.BudgetStore.
func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[userID][id]; !ok {
		return &domain.NotFoundError{Resource: "budget", ID: id}
	}
	delete(s.budgets[userID], id)
	return nil
}

func copyTransaction(tx domain.Transaction) domain.Transaction {
	if tx.CategoryID != nil {
		id := *tx.CategoryID
		tx.CategoryID = &id
	}
	return tx
}

func copyBudget(b domain.Budget) domain.Budget {
	if b.CategoryID != nil {
		id := *b.CategoryID
		b.CategoryID = &id
	}
	return b
}

// Ensure Store implements the ledger store interfaces.
var _ ledger.TransactionStore = (*Store)(nil)
var _ ledger.BudgetStore = (*Store)(nil)
