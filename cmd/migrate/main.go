package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/finance-ledger/internal/config"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/sqlstore"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// migrator is the subset of *migrate.Migrate used by the sql command.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sql":
		err = runSQLCommand(cfg, log, os.Args[2:])
	case "bigquery":
		err = runBigQueryCommand(cfg, log, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func printUsage() {
	fmt.Println("Finance Ledger migrations")
	fmt.Println("\nUsage:")
	fmt.Println("  migrate sql up|down|version [-steps N]")
	fmt.Println("  migrate bigquery [-dry-run] [-applied-by NAME]")
	fmt.Println("\nThe sql command targets DATA_BACKEND (postgres or sqlite); the")
	fmt.Println("bigquery command targets GCP_PROJECT and BQ_DATASET.")
}

// sqlTarget returns the dialect and DSN of the configured SQL backend.
func sqlTarget(cfg *config.Config) (sqlstore.Dialect, string, error) {
	switch cfg.DataBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return "", "", fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		return sqlstore.Postgres, cfg.DatabaseURL, nil
	case config.BackendSQLite:
		if cfg.SQLiteDBPath == "" {
			return "", "", fmt.Errorf("SQLITE_DB_PATH is required for the sqlite backend")
		}
		return sqlstore.SQLite, cfg.SQLiteDBPath, nil
	}
	return "", "", fmt.Errorf("DATA_BACKEND %q has no SQL schema to migrate", cfg.DataBackend)
}

func runSQLCommand(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("sql", flag.ExitOnError)
	steps := fs.Int("steps", 0, "Apply only N migrations (up) or roll back N (down); 0 means all for up and 1 for down")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one action: up, down or version")
	}

	d, dsn, err := sqlTarget(cfg)
	if err != nil {
		return err
	}

	m, err := sqlstore.OpenMigrator(d, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info().Str("dialect", string(d)).Str("action", fs.Arg(0)).Msg("Running SQL migrations")
	return runSQL(m, fs.Arg(0), *steps, os.Stdout)
}

// runSQL performs action on m and prints the resulting schema version.
func runSQL(m migrator, action string, steps int, out io.Writer) error {
	var err error
	switch action {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		err = m.Steps(-steps)
	case "version":
	default:
		return fmt.Errorf("unknown action %q: expected up, down or version", action)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(out, "No new migrations to apply. Database is up to date.")
	} else if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Fprintln(out, "Schema version: none")
		return nil
	case err != nil:
		return fmt.Errorf("reading version: %w", err)
	}

	if dirty {
		fmt.Fprintf(out, "Schema version: %d (dirty)\n", version)
		return fmt.Errorf("schema version %d is dirty; fix the database and force the version", version)
	}
	fmt.Fprintf(out, "Schema version: %d\n", version)
	return nil
}

func runBigQueryCommand(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("bigquery", flag.ExitOnError)
	project := fs.String("project", cfg.GCPProject, "GCP project ID")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset ID")
	appliedBy := fs.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	dryRun := fs.Bool("dry-run", false, "List pending migrations without applying them")
	fs.Parse(args)

	if *project == "" {
		return fmt.Errorf("-project or GCP_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repo, err := infraBQ.NewRepository(ctx, *project, *dataset)
	if err != nil {
		return err
	}
	defer repo.Close()

	log.Info().Str("project", *project).Str("dataset", repo.Dataset().DatasetID).Msg("Connected to BigQuery")

	if *dryRun {
		all, err := infraBQ.EmbeddedMigrations(repo.Dataset())
		if err != nil {
			return err
		}
		applied, err := infraBQ.AppliedMigrationsWithClient(ctx, repo.Client(), repo.Dataset())
		if err != nil {
			return err
		}
		printPending(os.Stdout, infraBQ.PendingMigrations(all, applied), len(all))
		return nil
	}

	count, err := repo.ApplyMigrations(ctx, *appliedBy, log)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("No new migrations to apply. Dataset is up to date.")
	} else {
		fmt.Printf("Successfully applied %d migration(s)\n", count)
	}
	return nil
}

func printPending(out io.Writer, pending []infraBQ.Migration, total int) {
	fmt.Fprintf(out, "Found %d migration files, %d pending\n", total, len(pending))
	for _, m := range pending {
		fmt.Fprintf(out, "  [PENDING] %04d_%s  %s\n", m.Version, m.Name, m.Checksum[:12])
	}
}
