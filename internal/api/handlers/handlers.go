package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxBodyBytes     = 1 << 20
)

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseDateParam accepts YYYY-MM-DD or RFC3339. A date-only upper bound
// covers the whole day.
func parseDateParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("must be YYYY-MM-DD or RFC3339")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return &t, nil
}

// parseDateRange reads start_date and end_date from the query.
func parseDateRange(r *http.Request) (from, to *time.Time, err error) {
	query := r.URL.Query()
	if from, err = parseDateParam(query.Get("start_date"), false); err != nil {
		return nil, nil, domain.NewValidationError("start_date", "%v", err)
	}
	if to, err = parseDateParam(query.Get("end_date"), true); err != nil {
		return nil, nil, domain.NewValidationError("end_date", "%v", err)
	}
	return from, to, nil
}

// parseIntParam reads a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, def int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// userLedger returns the ledger scoped to the request's user.
func userLedger(l *ledger.Ledger, r *http.Request) *ledger.Service {
	return l.ForUser(middleware.UserIDFromContext(r.Context()))
}

// TransactionsHandler serves /api/transactions for the scoped user.
type TransactionsHandler struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewTransactionsHandler returns a handler over l.
func NewTransactionsHandler(l *ledger.Ledger, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		ledger: l,
		log:    log,
	}
}

// transactionResponse adds the resolved category name to a transaction.
type transactionResponse struct {
	domain.Transaction
	CategoryName string `json:"category_name,omitempty"`
}

func toResponse(svc *ledger.Service, tx domain.Transaction) transactionResponse {
	return transactionResponse{Transaction: tx, CategoryName: svc.CategoryName(tx)}
}

// createTransactionRequest is the body of POST /api/transactions.
type createTransactionRequest struct {
	Amount        decimal.Decimal        `json:"amount"`
	Type          domain.TransactionType `json:"transaction_type"`
	Description   string                 `json:"description"`
	CategoryID    *string                `json:"category_id"`
	Date          string                 `json:"date"`
	Notes         string                 `json:"notes"`
	AICategorized bool                   `json:"ai_categorized"`
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	from, to, err := parseDateRange(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	skip, err := parseIntParam(r, "skip", 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseIntParam(r, "limit", defaultListLimit)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > maxListLimit {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
		return
	}

	svc := userLedger(h.ledger, r)
	transactions, err := svc.List(ctx, ledger.ListFilter{
		Query:      query.Get("q"),
		Type:       domain.TransactionType(strings.ToLower(query.Get("type"))),
		CategoryID: query.Get("category_id"),
		From:       from,
		To:         to,
		Offset:     skip,
		Limit:      limit,
	})
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, toResponse(svc, tx))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := parseDateParam(req.Date, false)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, domain.NewValidationError("date", "%v", err).Error())
		return
	}
	in := ledger.CreateInput{
		Amount:        req.Amount,
		Type:          req.Type,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Notes:         req.Notes,
		AICategorized: req.AICategorized,
	}
	if date != nil {
		in.Date = *date
	}

	svc := userLedger(h.ledger, r)
	tx, err := svc.Create(r.Context(), in)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toResponse(svc, tx))
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	svc := userLedger(h.ledger, r)
	tx, err := svc.Get(r.Context(), id)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toResponse(svc, tx))
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if err := userLedger(h.ledger, r).Delete(r.Context(), id); err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
