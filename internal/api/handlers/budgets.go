package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/rs/zerolog"
)

// BudgetsHandler handles budget and dashboard endpoints.
type BudgetsHandler struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(l *ledger.Ledger, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{
		ledger: l,
		log:    log,
	}
}

// ListBudgets handles GET /api/budgets. Every budget is returned with its
// progress; active_only=true restricts the list to active budgets.
func (h *BudgetsHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))

	svc := userLedger(h.ledger, r)
	budgets, err := svc.ListBudgets(ctx, activeOnly)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to list budgets")
		return
	}

	now := svc.Now()
	out := make([]domain.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := svc.Progress(ctx, b, now)
		if err != nil {
			middleware.WriteDomainError(w, h.log, err, "Failed to compute budget progress")
			return
		}
		out = append(out, p)
	}

	middleware.WriteJSON(w, http.StatusOK, out)
}

// CreateBudget handles POST /api/budgets
func (h *BudgetsHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var in ledger.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := userLedger(h.ledger, r).CreateBudget(r.Context(), in)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to create budget")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, b)
}

// GetBudget handles GET /api/budgets/{id} and includes the budget's progress.
func (h *BudgetsHandler) GetBudget(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	svc := userLedger(h.ledger, r)

	b, err := svc.GetBudget(ctx, id)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to get budget")
		return
	}
	p, err := svc.Progress(ctx, b, svc.Now())
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to compute budget progress")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

// DeleteBudget handles DELETE /api/budgets/{id}
func (h *BudgetsHandler) DeleteBudget(w http.ResponseWriter, r *http.Request, id string) {
	if err := userLedger(h.ledger, r).DeleteBudget(r.Context(), id); err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to delete budget")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles GET /api/dashboard. period=month restricts the summary
// to the current calendar month; otherwise start_date and end_date apply.
func (h *BudgetsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	svc := userLedger(h.ledger, r)
	now := svc.Now()

	opts := ledger.SummaryOptions{}
	switch query.Get("period") {
	case "month":
		from, to := ledger.MonthWindow(now)
		opts.From, opts.To = &from, &to
	case "", "all":
		from, to, err := parseDateRange(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.From, opts.To = from, to
	default:
		middleware.WriteError(w, http.StatusBadRequest, "period must be month or all")
		return
	}

	limit, err := parseIntParam(r, "recent_limit", 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.RecentLimit = limit

	dash, err := svc.Dashboard(r.Context(), opts, now)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err, "Failed to build dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dash)
}
