// Package app wires the ledger and its optional integrations from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/classifier"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/events"
	"github.com/dvloznov/finance-ledger/internal/export"
	"github.com/dvloznov/finance-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/sqlstore"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledger/memory"
	"github.com/dvloznov/finance-ledger/internal/notionsync"
	"github.com/rs/zerolog"
)

// App holds the wired components. Optional integrations are nil when not
// configured.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Ledger   *ledger.Ledger
	Registry *categories.Registry

	Classifier classifier.Classifier
	Events     *events.Client
	Warehouse  *infraBQ.Repository
	Storage    *gcsuploader.GCSStorageService
	Notion     notionsync.NotionService
	Exporter   *export.Exporter

	pinger  func(ctx context.Context) error
	closers []func() error
}

// New builds the application from cfg. On error every component opened
// so far is closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	var (
		cfg = a.Config
		log = a.Log
		err error
	)

	if needsStorage(cfg) {
		a.Storage, err = gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Storage.Close)
	}

	if cfg.WarehouseEnabled() {
		a.Warehouse, err = infraBQ.NewRepository(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Warehouse.Close)
	}

	a.Registry, err = a.loadRegistry(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("source", cfg.CategorySource).Int("categories", a.Registry.Len()).Msg("Category catalog loaded")

	txStore, budgetStore, err := a.openStores(ctx)
	if err != nil {
		return err
	}

	opts := []ledger.Option{
		ledger.WithLogger(log),
		ledger.WithRecentLimit(cfg.RecentLimit),
	}
	if cfg.AMQPURL != "" {
		a.Events, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Events.Close)
		opts = append(opts, ledger.WithPublisher(a.Events))
	}
	a.Ledger = ledger.New(txStore, budgetStore, a.Registry, opts...)

	if cfg.AIEnabled() {
		if err = a.buildClassifier(ctx); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - AI suggestions are disabled")
	}

	if cfg.NotionEnabled() {
		a.Notion = notionsync.NewNotionClient(cfg.NotionToken)
	}
	a.Exporter = a.buildExporter()
	return nil
}

func needsStorage(cfg *config.Config) bool {
	if cfg.ExportBucket != "" {
		return true
	}
	return cfg.CategorySource == config.CategorySourceFile && strings.HasPrefix(cfg.CategoryCatalog, "gs://")
}

func (a *App) loadRegistry(ctx context.Context) (*categories.Registry, error) {
	switch a.Config.CategorySource {
	case config.CategorySourceFile:
		var fetcher categories.ObjectFetcher
		if a.Storage != nil {
			fetcher = a.Storage
		}
		return categories.LoadFile(ctx, a.Config.CategoryCatalog, fetcher)
	case config.CategorySourceBigQuery:
		return categories.Load(ctx, a.Warehouse)
	}
	return categories.Default(), nil
}

func (a *App) openStores(ctx context.Context) (ledger.TransactionStore, ledger.BudgetStore, error) {
	switch a.Config.DataBackend {
	case config.BackendPostgres, config.BackendSQLite:
		d, err := sqlstore.ParseDialect(a.Config.DataBackend)
		if err != nil {
			return nil, nil, err
		}
		dsn := a.Config.DatabaseURL
		if d == sqlstore.SQLite {
			dsn = a.Config.SQLiteDBPath
		}
		store, err := sqlstore.Open(ctx, d, dsn)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.pinger = store.Ping
		a.Log.Info().Str("backend", a.Config.DataBackend).Msg("SQL store ready")
		return store, store, nil
	}

	a.Log.Warn().Msg("Using in-memory store - data is lost on restart")
	store := memory.NewStore()
	return store, store, nil
}

func (a *App) buildClassifier(ctx context.Context) error {
	gen, err := classifier.NewGeminiGenerator(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel)
	if err != nil {
		return err
	}
	var c classifier.Classifier = classifier.NewModelClassifier(gen, a.Registry, a.Config.AITimeout, a.Log)

	if a.Config.RedisURL != "" {
		cache, err := classifier.NewRedisCache(ctx, a.Config.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, cache.Close)
		c = classifier.NewCachingClassifier(c, cache, a.Config.SuggestionCacheTTL, a.Log)
	}
	a.Classifier = c
	return nil
}

func (a *App) buildExporter() *export.Exporter {
	var sinks []export.Sink
	if a.Warehouse != nil {
		sinks = append(sinks, export.NewBigQuerySink(a.Warehouse))
	}
	if a.Storage != nil && a.Config.ExportBucket != "" {
		sinks = append(sinks, export.NewGCSSink(a.Storage, a.Config.ExportBucket))
	}
	if a.Notion != nil {
		sinks = append(sinks, export.NewNotionSink(a.Notion, a.Config.NotionDatabaseID))
	}
	if len(sinks) == 0 {
		return nil
	}
	return export.NewExporter(a.Log, sinks...)
}

// Ping checks the backing database, if any.
func (a *App) Ping(ctx context.Context) error {
	if a.pinger == nil {
		return nil
	}
	return a.pinger(ctx)
}

// Close releases every opened component in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
