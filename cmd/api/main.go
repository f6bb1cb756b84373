package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/handlers"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real environment variables take precedence
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	log.Info().
		Str("backend", cfg.DataBackend).
		Int("categories", a.Registry.Len()).
		Bool("ai", a.Classifier != nil).
		Bool("events", a.Events != nil).
		Msg("Ledger ready")

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	var (
		jobQueue  *inmemory.Queue
		publisher jobs.Publisher
	)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if a.Exporter != nil {
		jobQueue = inmemory.NewQueue(100, jobStore, inmemory.WithLogger(log))
		publisher = jobQueue

		log.Info().Strs("sinks", a.Exporter.Sinks()).Msg("Starting export workers")
		if err := jobQueue.Start(workerCtx, a.RunExport); err != nil {
			log.Fatal().Err(err).Msg("Failed to start export workers")
		}
	} else {
		log.Warn().Msg("No export sinks configured - exports will be disabled")
	}

	// Initialize handlers
	mux := handlers.NewRouter(handlers.Routes{
		Transactions: handlers.NewTransactionsHandler(a.Ledger, log),
		Budgets:      handlers.NewBudgetsHandler(a.Ledger, log),
		Categories:   handlers.NewCategoriesHandler(a.Registry),
		AI:           handlers.NewAIHandler(a.Classifier, a.Registry, log),
		Jobs:         handlers.NewJobsHandler(jobStore, publisher, log),
		Health:       a,
		Log:          log,
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(cfg.AllowedOrigins)(
					middleware.UserScope(cfg.DefaultUserID)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
