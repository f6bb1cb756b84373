package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/classifier"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AIHandler handles suggestion endpoints. The ledger is never mutated here.
type AIHandler struct {
	classifier classifier.Classifier
	registry   *categories.Registry
	policy     ledger.AcceptancePolicy
	log        zerolog.Logger
}

// NewAIHandler creates a new AI handler. c may be nil when no model is
// configured; suggestion requests then fail with 503.
func NewAIHandler(c classifier.Classifier, registry *categories.Registry, log zerolog.Logger) *AIHandler {
	return &AIHandler{
		classifier: c,
		registry:   registry,
		policy:     ledger.DefaultAcceptancePolicy,
		log:        log,
	}
}

type categorizeRequest struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        string           `json:"date,omitempty"`
}

func (req categorizeRequest) toClassifierRequest() (classifier.Request, error) {
	out := classifier.Request{Description: req.Description, Amount: req.Amount}
	date, err := parseDateParam(req.Date, false)
	if err != nil {
		return out, domain.NewValidationError("date", "%v", err)
	}
	out.Date = date
	return out, nil
}

// Categorize handles POST /api/ai/categorize
func (h *AIHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if h.classifier == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "AI suggestions are not configured")
		return
	}

	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	creq, err := req.toClassifierRequest()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestion, err := h.classifier.Categorize(r.Context(), creq)
	if err != nil {
		h.log.Warn().Err(err).Msg("Categorization failed")
		middleware.WriteDomainError(w, h.log, err, "Failed to categorize transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, suggestion)
}

// draftRequest is a partially filled transaction form. Non-null fields are
// treated as edited by the user. When Suggestion is given it is applied as
// is; otherwise the model is asked using the description.
type draftRequest struct {
	Amount      *decimal.Decimal        `json:"amount"`
	Type        *domain.TransactionType `json:"transaction_type"`
	Description string                  `json:"description"`
	CategoryID  *string                 `json:"category_id"`
	Date        *string                 `json:"date"`
	Notes       *string                 `json:"notes"`
	Suggestion  *domain.AISuggestion    `json:"suggestion,omitempty"`
}

type draftResponse struct {
	Amount        *decimal.Decimal       `json:"amount"`
	Type          domain.TransactionType `json:"transaction_type"`
	Description   string                 `json:"description"`
	CategoryID    *string                `json:"category_id"`
	Date          *time.Time             `json:"date"`
	Notes         string                 `json:"notes"`
	AICategorized bool                   `json:"ai_categorized"`
	Suggestion    domain.AISuggestion    `json:"suggestion"`
	FilledFields  []ledger.DraftField    `json:"filled_fields"`
	EditedFields  []ledger.DraftField    `json:"edited_fields"`
}

// Draft handles POST /api/ai/draft
func (h *AIHandler) Draft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft := ledger.NewDraft()
	draft.SetDescription(req.Description)
	if req.Amount != nil {
		draft.SetAmount(*req.Amount)
	}
	if req.Type != nil {
		draft.SetType(*req.Type)
	}
	if req.CategoryID != nil {
		draft.SetCategory(req.CategoryID)
	}
	if req.Notes != nil {
		draft.SetNotes(*req.Notes)
	}
	if req.Date != nil {
		date, err := parseDateParam(*req.Date, false)
		if err != nil || date == nil {
			middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC3339")
			return
		}
		draft.SetDate(*date)
	}

	var suggestion domain.AISuggestion
	if req.Suggestion != nil {
		suggestion = *req.Suggestion
	} else {
		if h.classifier == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "AI suggestions are not configured")
			return
		}
		creq := classifier.Request{Description: req.Description, Amount: draft.Amount, Date: draft.Date}
		var err error
		suggestion, err = h.classifier.Categorize(r.Context(), creq)
		if err != nil {
			h.log.Warn().Err(err).Msg("Categorization failed")
			middleware.WriteDomainError(w, h.log, err, "Failed to categorize transaction")
			return
		}
	}

	filled := draft.ApplySuggestion(suggestion, h.registry, h.policy)
	if filled == nil {
		filled = []ledger.DraftField{}
	}
	edited := draft.EditedFields()
	if edited == nil {
		edited = []ledger.DraftField{}
	}

	middleware.WriteJSON(w, http.StatusOK, draftResponse{
		Amount:        draft.Amount,
		Type:          draft.Type,
		Description:   draft.Description,
		CategoryID:    draft.CategoryID,
		Date:          draft.Date,
		Notes:         draft.Notes,
		AICategorized: draft.AICategorized(),
		Suggestion:    suggestion,
		FilledFields:  filled,
		EditedFields:  edited,
	})
}
