package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator builds a golang-migrate instance over db using the embedded
// migrations for d. Closing the migrator closes db.
func NewMigrator(db *sql.DB, d Dialect) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch d {
	case Postgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("NewMigrator: unsupported dialect %q", d)
	}
	if err != nil {
		return nil, fmt.Errorf("NewMigrator: create %s driver: %w", d, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(d))
	if err != nil {
		return nil, fmt.Errorf("NewMigrator: create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(d), driver)
	if err != nil {
		return nil, fmt.Errorf("NewMigrator: create migrate instance: %w", err)
	}
	return m, nil
}

// OpenMigrator opens a dedicated connection to dsn and returns a migrator
// over it. Closing the migrator closes the connection.
func OpenMigrator(d Dialect, dsn string) (*migrate.Migrate, error) {
	if err := ensureSQLiteDir(d, dsn); err != nil {
		return nil, fmt.Errorf("OpenMigrator: %w", err)
	}
	db, err := openDB(d, dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenMigrator: %w", err)
	}

	m, err := NewMigrator(db, d)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenMigrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending up migrations on a dedicated
// connection so that closing the migrator leaves the store's pool intact.
func RunMigrations(d Dialect, dsn string) error {
	m, err := OpenMigrator(d, dsn)
	if err != nil {
		return fmt.Errorf("RunMigrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("RunMigrations: run migrations: %w", err)
	}
	return nil
}
