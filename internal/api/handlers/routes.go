package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes groups the handlers mounted by NewRouter. Health may be nil.
type Routes struct {
	Transactions *TransactionsHandler
	Budgets      *BudgetsHandler
	Categories   *CategoriesHandler
	AI           *AIHandler
	Jobs         *JobsHandler
	Health       Pinger
	Log          zerolog.Logger
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NewRouter registers every API endpoint on a new ServeMux.
func NewRouter(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Transactions.ListTransactions(w, r)
		case http.MethodPost:
			rt.Transactions.CreateTransaction(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			rt.Transactions.GetTransaction(w, r, id)
		case http.MethodDelete:
			rt.Transactions.DeleteTransaction(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Categories endpoints
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Categories.ListCategories(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Budgets endpoints
	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Budgets.ListBudgets(w, r)
		case http.MethodPost:
			rt.Budgets.CreateBudget(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/budgets/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/budgets/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Budget ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			rt.Budgets.GetBudget(w, r, id)
		case http.MethodDelete:
			rt.Budgets.DeleteBudget(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Budgets.Dashboard(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// AI endpoints
	mux.HandleFunc("/api/ai/categorize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.AI.Categorize(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/ai/draft", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.AI.Draft(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/ai/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Categories.ListAICategories(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Export and job endpoints
	mux.HandleFunc("/api/exports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.Jobs.CreateExport(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		rt.Jobs.GetJob(w, r, jobID)
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if rt.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := rt.Health.Ping(ctx); err != nil {
				rt.Log.Warn().Err(err).Msg("Health check failed")
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
		}
		middleware.WriteJSON(w, code, map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
