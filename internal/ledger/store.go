package ledger

import (
	"context"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// StoreFilter narrows a store listing. Zero values mean "no constraint".
// From and To are inclusive bounds on the transaction date.
type StoreFilter struct {
	Type       domain.TransactionType
	CategoryID string
	From       *time.Time
	To         *time.Time
}

// Matches reports whether tx satisfies the filter. Stores that cannot
// express a constraint natively may use it as a post-filter.
func (f StoreFilter) Matches(tx domain.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && (tx.CategoryID == nil || *tx.CategoryID != f.CategoryID) {
		return false
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	return true
}

// TransactionStore persists transactions. All operations are scoped to a
// user id and each mutation is atomic with respect to its own effect.
type TransactionStore interface {
	// InsertTransaction persists a fully populated transaction.
	InsertTransaction(ctx context.Context, tx domain.Transaction) error

	// GetTransaction returns a *domain.NotFoundError when the id is absent.
	GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error)

	// ListTransactions returns the user's transactions matching filter, in no particular order.
	ListTransactions(ctx context.Context, userID string, filter StoreFilter) ([]domain.Transaction, error)

	// DeleteTransaction removes a transaction permanently. It returns a
	// *domain.NotFoundError when the id is absent, including on a second delete.
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// BudgetStore persists budget definitions.
type BudgetStore interface {
	// InsertBudget persists a fully populated budget.
	InsertBudget(ctx context.Context, b domain.Budget) error

	// GetBudget returns a *domain.NotFoundError when the id is absent.
	GetBudget(ctx context.Context, userID, id string) (domain.Budget, error)

	// ListBudgets returns the user's budgets ordered by start date, then name.
	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)

	// DeleteBudget returns a *domain.NotFoundError when the id is absent.
	DeleteBudget(ctx context.Context, userID, id string) error
}

// EventPublisher announces committed ledger mutations to other systems.
type EventPublisher interface {
	// PublishTransactionCreated is called after a transaction has been stored.
	PublishTransactionCreated(ctx context.Context, tx domain.Transaction) error

	// PublishTransactionDeleted is called after a transaction has been removed.
	PublishTransactionDeleted(ctx context.Context, userID, transactionID string) error
}
