package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	registry *categories.Registry
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(registry *categories.Registry) *CategoriesHandler {
	return &CategoriesHandler{registry: registry}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list := h.registry.All()
	if typ := r.URL.Query().Get("type"); typ != "" {
		t, ok := domain.ParseTransactionType(typ)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "type must be income or expense")
			return
		}
		list = h.registry.CategoriesFor(t)
	}
	if list == nil {
		list = []domain.Category{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": list,
		"count":      len(list),
	})
}

// ListAICategories handles GET /api/ai/categories, the category names the
// suggestion model may choose from.
func (h *CategoriesHandler) ListAICategories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{
		"expense": h.registry.NamesFor(domain.TransactionTypeExpense),
		"income":  h.registry.NamesFor(domain.TransactionTypeIncome),
	})
}
