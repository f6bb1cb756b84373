package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func testTransaction(id string, date time.Time, typ domain.TransactionType, category *string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		UserID:      "user-1",
		Amount:      decimal.RequireFromString("42.10"),
		Type:        typ,
		Description: "tx " + id,
		CategoryID:  category,
		Date:        date,
		Notes:       "note",
		CreatedAt:   time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.UTC),
	}
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{"postgres", Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"sqlite untouched", SQLite, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
		{"no placeholders", Postgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.rebind(tt.query); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect(" Postgres "); err != nil || d != Postgres {
		t.Errorf("ParseDialect(Postgres) = %q, %v", d, err)
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Error("ParseDialect(mysql) should fail")
	}
}

func TestTimeValue_Scan(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)

	for _, src := range []any{
		want,
		want.Format(sqliteTimeLayout),
		[]byte(want.Format(time.RFC3339Nano)),
	} {
		var v timeValue
		if err := v.Scan(src); err != nil {
			t.Fatalf("Scan(%v) error = %v", src, err)
		}
		if !v.Time.Equal(want) {
			t.Errorf("Scan(%v) = %v, want %v", src, v.Time, want)
		}
	}

	var v timeValue
	if err := v.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestStore_TransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := testTransaction("tx-1", date, domain.TransactionTypeExpense, strPtr("food-dining"))
	tx.AICategorized = true

	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	got, err := s.GetTransaction(ctx, "user-1", "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if !got.Amount.Equal(tx.Amount) || got.Type != tx.Type || got.Description != tx.Description {
		t.Errorf("GetTransaction() = %+v, want %+v", got, tx)
	}
	if got.CategoryID == nil || *got.CategoryID != "food-dining" {
		t.Errorf("CategoryID = %v, want food-dining", got.CategoryID)
	}
	if !got.Date.Equal(date) || !got.CreatedAt.Equal(tx.CreatedAt) {
		t.Errorf("times = %v / %v, want %v / %v", got.Date, got.CreatedAt, date, tx.CreatedAt)
	}
	if !got.AICategorized || got.Notes != "note" || got.UserID != "user-1" {
		t.Errorf("flags lost: %+v", got)
	}

	if _, err := s.GetTransaction(ctx, "user-2", "tx-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTransaction() for other user error = %v, want not found", err)
	}
}

func TestStore_NullCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := testTransaction("tx-1", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), domain.TransactionTypeIncome, nil)
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	got, err := s.GetTransaction(ctx, "user-1", "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("CategoryID = %q, want nil", *got.CategoryID)
	}
}

func TestStore_ListTransactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	march := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	for _, tx := range []domain.Transaction{
		testTransaction("a", march(1), domain.TransactionTypeIncome, strPtr("salary")),
		testTransaction("b", march(10), domain.TransactionTypeExpense, strPtr("food-dining")),
		testTransaction("c", march(20), domain.TransactionTypeExpense, nil),
	} {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction(%s) error = %v", tx.ID, err)
		}
	}

	from, to := march(5), march(20)
	tests := []struct {
		name   string
		filter ledger.StoreFilter
		want   int
	}{
		{"all", ledger.StoreFilter{}, 3},
		{"by type", ledger.StoreFilter{Type: domain.TransactionTypeExpense}, 2},
		{"by category", ledger.StoreFilter{CategoryID: "salary"}, 1},
		{"inclusive range", ledger.StoreFilter{From: &from, To: &to}, 2},
		{"from only", ledger.StoreFilter{From: &to}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTransactions(ctx, "user-1", tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListTransactions() returned %d, want %d", len(got), tt.want)
			}
		})
	}

	other, err := s.ListTransactions(ctx, "user-2", ledger.StoreFilter{})
	if err != nil || len(other) != 0 {
		t.Errorf("ListTransactions(user-2) = %d, %v; want none", len(other), err)
	}
}

func TestStore_DeleteTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := testTransaction("tx-1", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), domain.TransactionTypeExpense, nil)
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	if err := s.DeleteTransaction(ctx, "user-2", "tx-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteTransaction() by other user error = %v, want not found", err)
	}
	if err := s.DeleteTransaction(ctx, "user-1", "tx-1"); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := s.DeleteTransaction(ctx, "user-1", "tx-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v, want not found", err)
	}
}

func TestStore_Budgets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(id, name string, start civil.Date, category *string) domain.Budget {
		return domain.Budget{
			ID:         id,
			UserID:     "user-1",
			Name:       name,
			Amount:     decimal.RequireFromString("500"),
			Period:     domain.BudgetPeriodMonthly,
			CategoryID: category,
			StartDate:  start,
			EndDate:    domain.BudgetPeriodMonthly.EndFrom(start),
			IsActive:   true,
			CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	feb := civil.Date{Year: 2024, Month: 2, Day: 1}
	jan := civil.Date{Year: 2024, Month: 1, Day: 1}
	for _, b := range []domain.Budget{
		mk("b1", "Groceries", feb, strPtr("food-dining")),
		mk("b2", "Everything", feb, nil),
		mk("b3", "January", jan, nil),
	} {
		if err := s.InsertBudget(ctx, b); err != nil {
			t.Fatalf("InsertBudget(%s) error = %v", b.ID, err)
		}
	}

	got, err := s.GetBudget(ctx, "user-1", "b1")
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if got.StartDate != feb || got.EndDate != (civil.Date{Year: 2024, Month: 2, Day: 29}) {
		t.Errorf("dates = %s..%s", got.StartDate, got.EndDate)
	}
	if !got.Amount.Equal(decimal.NewFromInt(500)) || !got.IsActive || *got.CategoryID != "food-dining" {
		t.Errorf("GetBudget() = %+v", got)
	}

	list, err := s.ListBudgets(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListBudgets() error = %v", err)
	}
	wantOrder := []string{"b3", "b2", "b1"}
	if len(list) != len(wantOrder) {
		t.Fatalf("ListBudgets() returned %d, want %d", len(list), len(wantOrder))
	}
	for i, b := range list {
		if b.ID != wantOrder[i] {
			t.Errorf("ListBudgets()[%d] = %s, want %s", i, b.ID, wantOrder[i])
		}
	}

	if err := s.DeleteBudget(ctx, "user-1", "b2"); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if _, err := s.GetBudget(ctx, "user-1", "b2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetBudget() after delete error = %v, want not found", err)
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := Open(ctx, SQLite, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	tx := testTransaction("tx-1", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), domain.TransactionTypeExpense, nil)
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	s.Close()

	s, err = Open(ctx, SQLite, path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s.Close()
	if _, err := s.GetTransaction(ctx, "user-1", "tx-1"); err != nil {
		t.Errorf("GetTransaction() after reopen error = %v", err)
	}
}
