package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service is the transaction ledger of a single user.
type Service struct {
	*Ledger
	userID string
	log    zerolog.Logger
}

// UserID returns the user the service is scoped to.
func (s *Service) UserID() string { return s.userID }

// CreateInput is the caller-supplied part of a new transaction.
type CreateInput struct {
	Amount        decimal.Decimal        `json:"amount"`
	Type          domain.TransactionType `json:"transaction_type"`
	Description   string                 `json:"description"`
	CategoryID    *string                `json:"category_id"`
	Date          time.Time              `json:"date"`
	Notes         string                 `json:"notes"`
	AICategorized bool                   `json:"ai_categorized"`
}

// ListFilter selects and pages transactions. Query is matched
// case-insensitively against the description and the category name.
type ListFilter struct {
	Query      string
	Type       domain.TransactionType
	CategoryID string
	From       *time.Time
	To         *time.Time
	Offset     int
	Limit      int
}

// Create validates input, assigns an id and creation time, and stores the
// transaction. Validation failures never reach the store.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Transaction, error) {
	tx, err := s.validateCreate(in)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx.ID = uuid.New().String()
	tx.UserID = s.userID
	tx.CreatedAt = s.clock.next()

	if err := s.transactions.InsertTransaction(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("Create: inserting transaction: %w", err)
	}

	s.log.Info().
		Str("transaction_id", tx.ID).
		Str("transaction_type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Bool("ai_categorized", tx.AICategorized).
		Msg("Transaction created")

	if s.events != nil {
		// The row is committed; a cancelled request must not lose the event.
		if err := s.events.PublishTransactionCreated(context.WithoutCancel(ctx), tx); err != nil {
			s.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to publish transaction created event")
		}
	}

	return tx, nil
}

// Get returns one transaction or a *domain.NotFoundError.
func (s *Service) Get(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.transactions.GetTransaction(ctx, s.userID, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Get: %w", err)
	}
	return tx, nil
}

// List returns transactions ordered by date descending, then creation time
// descending.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, domain.NewValidationError("transaction_type", "unknown type %q", f.Type)
	}
	if f.Offset < 0 || f.Limit < 0 {
		return nil, domain.NewValidationError("limit", "offset and limit must not be negative")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.NewValidationError("end_date", "must not be before start date")
	}

	txs, err := s.transactions.ListTransactions(ctx, s.userID, StoreFilter{
		Type:       f.Type,
		CategoryID: f.CategoryID,
		From:       f.From,
		To:         f.To,
	})
	if err != nil {
		return nil, fmt.Errorf("List: listing transactions: %w", err)
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		matched := txs[:0]
		for _, tx := range txs {
			if s.matchesQuery(tx, q) {
				matched = append(matched, tx)
			}
		}
		txs = matched
	}

	SortTransactions(txs)

	if f.Offset >= len(txs) {
		return []domain.Transaction{}, nil
	}
	txs = txs[f.Offset:]
	if f.Limit > 0 && f.Limit < len(txs) {
		txs = txs[:f.Limit]
	}
	return txs, nil
}

// Delete removes a transaction. Deleting an absent id, including a second
// delete of the same id, returns a *domain.NotFoundError.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.transactions.DeleteTransaction(ctx, s.userID, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	s.log.Info().Str("transaction_id", id).Msg("Transaction deleted")

	if s.events != nil {
		if err := s.events.PublishTransactionDeleted(context.WithoutCancel(ctx), s.userID, id); err != nil {
			s.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to publish transaction deleted event")
		}
	}
	return nil
}

// CategoryName returns the display name for a transaction's category, or
// "Uncategorized".
func (s *Service) CategoryName(tx domain.Transaction) string {
	name, _ := s.categoryLabel(tx.CategoryID)
	return name
}

func (s *Service) matchesQuery(tx domain.Transaction, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(tx.Description), lowerQuery) {
		return true
	}
	if !tx.HasCategory() {
		return false
	}
	name, _ := s.categoryLabel(tx.CategoryID)
	return strings.Contains(strings.ToLower(name), lowerQuery)
}

func (s *Service) categoryLabel(id *string) (name, color string) {
	if id == nil || *id == "" {
		return domain.UncategorizedName, domain.DefaultCategoryColor
	}
	if c, ok := s.registry.Get(*id); ok {
		return c.Name, c.Color
	}
	return *id, domain.DefaultCategoryColor
}

// SortTransactions orders txs by date descending, then creation time
// descending, then id descending.
func SortTransactions(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
