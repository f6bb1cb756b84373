package ledger

import (
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// DraftField names an editable field of a transaction draft.
type DraftField string

const (
	FieldAmount      DraftField = "amount"
	FieldType        DraftField = "transaction_type"
	FieldDescription DraftField = "description"
	FieldCategory    DraftField = "category_id"
	FieldDate        DraftField = "date"
	FieldNotes       DraftField = "notes"
)

// AcceptancePolicy decides whether a suggested category is applied to a
// draft. Extracted amount, date and type only ever fill fields the user has
// not edited, whatever the confidence.
type AcceptancePolicy struct {
	MinConfidence float64
}

// DefaultAcceptancePolicy applies categories suggested with at least 50% confidence.
var DefaultAcceptancePolicy = AcceptancePolicy{MinConfidence: 0.5}

// Draft is a transaction form being filled in by a user, optionally
// pre-filled from an AI suggestion. Fields set through the Set methods are
// user-edited and are never overwritten by ApplySuggestion.
type Draft struct {
	Amount      *decimal.Decimal
	Type        domain.TransactionType
	Description string
	CategoryID  *string
	Date        *time.Time
	Notes       string

	edited     map[DraftField]bool
	aiCategory bool
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{edited: make(map[DraftField]bool)}
}

func (d *Draft) mark(f DraftField) {
	if d.edited == nil {
		d.edited = make(map[DraftField]bool)
	}
	d.edited[f] = true
}

func (d *Draft) SetAmount(a decimal.Decimal) {
	d.Amount = &a
	d.mark(FieldAmount)
}

func (d *Draft) SetType(t domain.TransactionType) {
	d.Type = t
	d.mark(FieldType)
}

func (d *Draft) SetDescription(s string) {
	d.Description = s
	d.mark(FieldDescription)
}

func (d *Draft) SetCategory(id *string) {
	d.CategoryID = id
	d.aiCategory = false
	d.mark(FieldCategory)
}

func (d *Draft) SetDate(t time.Time) {
	d.Date = &t
	d.mark(FieldDate)
}

func (d *Draft) SetNotes(s string) {
	d.Notes = s
	d.mark(FieldNotes)
}

// Edited reports whether the user has set f.
func (d *Draft) Edited(f DraftField) bool { return d.edited[f] }

// EditedFields lists the user-edited fields in a stable order.
func (d *Draft) EditedFields() []DraftField {
	var out []DraftField
	for _, f := range []DraftField{FieldAmount, FieldType, FieldDescription, FieldCategory, FieldDate, FieldNotes} {
		if d.edited[f] {
			out = append(out, f)
		}
	}
	return out
}

// AICategorized reports whether the draft's category came from a suggestion.
func (d *Draft) AICategorized() bool { return d.aiCategory }

// ApplySuggestion pre-fills every field the user has not edited and returns
// the fields it changed. A category chosen by the user constrains the type:
// a single-type category decides it, and a suggested type the category does
// not accept is ignored. The category is applied only when the suggestion
// resolved to a registry category, meets policy, and accepts the draft's
// type. A category filled by an earlier suggestion is dropped once it no
// longer accepts the type.
func (d *Draft) ApplySuggestion(s domain.AISuggestion, reg *categories.Registry, policy AcceptancePolicy) []DraftField {
	var filled []DraftField

	if !d.Edited(FieldType) {
		if t, ok := d.suggestedType(s.Type, reg); ok {
			d.Type = t
			filled = append(filled, FieldType)
		}
	}
	if !d.Edited(FieldAmount) && s.ExtractedAmount != nil && s.ExtractedAmount.IsPositive() {
		a := *s.ExtractedAmount
		d.Amount = &a
		filled = append(filled, FieldAmount)
	}
	if !d.Edited(FieldDate) && s.ExtractedDate != nil {
		t := *s.ExtractedDate
		d.Date = &t
		filled = append(filled, FieldDate)
	}

	if d.Edited(FieldCategory) {
		return filled
	}

	categoryChanged := false
	if d.aiCategory && d.CategoryID != nil {
		if cat, ok := reg.Get(*d.CategoryID); !ok || !cat.Allows(d.Type) {
			d.CategoryID = nil
			d.aiCategory = false
			categoryChanged = true
		}
	}
	if s.CategoryID != nil && s.Confidence >= policy.MinConfidence {
		if cat, ok := reg.Get(*s.CategoryID); ok && cat.Allows(d.Type) {
			id := cat.ID
			d.CategoryID = &id
			d.aiCategory = true
			categoryChanged = true
		}
	}
	if categoryChanged {
		filled = append(filled, FieldCategory)
	}

	return filled
}

// suggestedType returns the type to fill in, given the category the user
// picked, if any.
func (d *Draft) suggestedType(t domain.TransactionType, reg *categories.Registry) (domain.TransactionType, bool) {
	if d.Edited(FieldCategory) && d.CategoryID != nil {
		if cat, ok := reg.Get(*d.CategoryID); ok {
			if len(cat.AllowedTypes) == 1 {
				return cat.AllowedTypes[0], true
			}
			if !cat.Allows(t) {
				return "", false
			}
		}
	}
	return t, t.Valid()
}

// Input converts the draft into a CreateInput. Missing amount or date are
// left zero so that Create reports them as validation errors.
func (d *Draft) Input() CreateInput {
	in := CreateInput{
		Type:          d.Type,
		Description:   d.Description,
		CategoryID:    d.CategoryID,
		Notes:         d.Notes,
		AICategorized: d.aiCategory,
	}
	if d.Amount != nil {
		in.Amount = *d.Amount
	}
	if d.Date != nil {
		in.Date = *d.Date
	}
	return in
}
