package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AISuggestion is a non-persisted classification proposal for a draft
// transaction. SuggestedCategory is the raw name returned by the model;
// CategoryID is set only when that name resolved against the registry.
type AISuggestion struct {
	SuggestedCategory string           `json:"suggested_category"`
	CategoryID        *string          `json:"category_id,omitempty"`
	Confidence        float64          `json:"confidence"`
	Type              TransactionType  `json:"transaction_type"`
	ExtractedAmount   *decimal.Decimal `json:"extracted_amount,omitempty"`
	ExtractedDate     *time.Time       `json:"extracted_date,omitempty"`
}
