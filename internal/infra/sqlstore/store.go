package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store is a transaction and budget store on a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database, applies pending migrations and returns a
// ready Store. dsn is a postgres:// URL for Postgres or a file path for SQLite.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if err := ensureSQLiteDir(d, dsn); err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	db, err := openDB(d, dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}

	return &Store{db: db, dialect: d}, nil
}

// ensureSQLiteDir creates the parent directory of a SQLite database file.
func ensureSQLiteDir(d Dialect, dsn string) error {
	if d != SQLite || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}
	return nil
}

// openDB opens a connection pool without touching the network.
func openDB(d Dialect, dsn string) (*sql.DB, error) {
	switch d {
	case Postgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		return stdlib.OpenDB(*cfg), nil
	case SQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", d)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

const transactionColumns = `id, user_id, amount, transaction_type, description, category_id, date, notes, ai_categorized, created_at`

// InsertTransaction implements ledger.TransactionStore.
func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := s.exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.UserID,
		tx.Amount.StringFixed(2),
		string(tx.Type),
		tx.Description,
		nullString(tx.CategoryID),
		s.dialect.timeArg(tx.Date),
		tx.Notes,
		tx.AICategorized,
		s.dialect.timeArg(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// GetTransaction implements ledger.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error) {
	row := s.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`,
		userID, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// ListTransactions implements ledger.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter ledger.StoreFilter) ([]domain.Transaction, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.From != nil {
		where = append(where, "date >= ?")
		args = append(args, s.dialect.timeArg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "date <= ?")
		args = append(args, s.dialect.timeArg(*filter.To))
	}

	rows, err := s.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: scanning row: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: iterating rows: %w", err)
	}
	return out, nil
}

// DeleteTransaction implements ledger.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.exec(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteTransaction: rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (domain.Transaction, error) {
	var (
		tx         domain.Transaction
		txType     string
		categoryID sql.NullString
		date       timeValue
		createdAt  timeValue
	)
	if err := sc.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&txType,
		&tx.Description,
		&categoryID,
		&date,
		&tx.Notes,
		&tx.AICategorized,
		&createdAt,
	); err != nil {
		return domain.Transaction{}, err
	}
	tx.Type = domain.TransactionType(txType)
	tx.CategoryID = stringPtr(categoryID)
	tx.Date = date.Time
	tx.CreatedAt = createdAt.Time
	tx.Amount = tx.Amount.Round(2)
	return tx, nil
}

const budgetColumns = `id, user_id, name, amount, period, category_id, start_date, end_date, is_active, created_at`

// InsertBudget implements ledger.BudgetStore.
func (s *Store) InsertBudget(ctx context.Context, b domain.Budget) error {
	_, err := s.exec(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.UserID,
		b.Name,
		b.Amount.StringFixed(2),
		string(b.Period),
		nullString(b.CategoryID),
		b.StartDate.String(),
		b.EndDate.String(),
		b.IsActive,
		s.dialect.timeArg(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertBudget: %w", err)
	}
	return nil
}

// GetBudget implements ledger.BudgetStore.
func (s *Store) GetBudget(ctx context.Context, userID, id string) (domain.Budget, error) {
	row := s.queryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND id = ?`,
		userID, id)

	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Budget{}, &domain.NotFoundError{Resource: "budget", ID: id}
	}
	if err != nil {
		return domain.Budget{}, fmt.Errorf("GetBudget: %w", err)
	}
	return b, nil
}

// ListBudgets implements ledger.BudgetStore.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	rows, err := s.query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY start_date, name, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: %w", err)
	}
	defer rows.Close()

	var out []domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: scanning row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBudgets: iterating rows: %w", err)
	}
	return out, nil
}

// DeleteBudget implements ledger.BudgetStore.
func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := s.exec(ctx, `DELETE FROM budgets WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteBudget: rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: "budget", ID: id}
	}
	return nil
}

func scanBudget(sc scanner) (domain.Budget, error) {
	var (
		b          domain.Budget
		period     string
		categoryID sql.NullString
		createdAt  timeValue
	)
	if err := sc.Scan(
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.Amount,
		&period,
		&categoryID,
		&b.StartDate,
		&b.EndDate,
		&b.IsActive,
		&createdAt,
	); err != nil {
		return domain.Budget{}, err
	}
	b.Period = domain.BudgetPeriod(period)
	b.CategoryID = stringPtr(categoryID)
	b.CreatedAt = createdAt.Time
	b.Amount = b.Amount.Round(2)
	return b, nil
}

var (
	_ ledger.TransactionStore = (*Store)(nil)
	_ ledger.BudgetStore      = (*Store)(nil)
)
