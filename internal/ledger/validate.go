package ledger

import (
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// validateCreate checks every invariant of a new transaction and returns
// the normalised record without id, user or creation time.
func (s *Service) validateCreate(in CreateInput) (domain.Transaction, error) {
	if !in.Amount.IsPositive() {
		return domain.Transaction{}, domain.NewValidationError("amount", "must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return domain.Transaction{}, domain.NewValidationError("amount", "must have at most 2 decimal places")
	}

	typ, ok := domain.ParseTransactionType(string(in.Type))
	if !ok {
		return domain.Transaction{}, domain.NewValidationError("transaction_type", "must be income or expense")
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return domain.Transaction{}, domain.NewValidationError("description", "must not be empty")
	}

	if in.Date.IsZero() {
		return domain.Transaction{}, domain.NewValidationError("date", "is required")
	}

	var categoryID *string
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) != "" {
		id := strings.TrimSpace(*in.CategoryID)
		cat, ok := s.registry.Get(id)
		if !ok {
			return domain.Transaction{}, domain.NewValidationError("category_id", "unknown category %q", id)
		}
		if !cat.Allows(typ) {
			return domain.Transaction{}, domain.NewValidationError("category_id",
				"category %q does not accept %s transactions", cat.Name, typ)
		}
		categoryID = &id
	}

	return domain.Transaction{
		Amount:        in.Amount.Round(2),
		Type:          typ,
		Description:   desc,
		CategoryID:    categoryID,
		Date:          in.Date.UTC().Truncate(time.Microsecond),
		Notes:         strings.TrimSpace(in.Notes),
		AICategorized: in.AICategorized,
	}, nil
}
