package classifier

import (
	"context"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultModelName is the default Gemini model used for categorization.
const DefaultModelName = "gemini-2.5-flash"

// DefaultTimeout bounds a single categorization request.
const DefaultTimeout = 15 * time.Second

// Request describes a draft transaction to categorize. Amount and Date are
// optional hints.
type Request struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
}

// Classifier proposes a category for a draft transaction. Implementations
// never touch the ledger; failures are returned as *domain.ClassificationError.
type Classifier interface {
	// Categorize returns a suggestion for req. It performs exactly one
	// request and no retries.
	Categorize(ctx context.Context, req Request) (domain.AISuggestion, error)
}
