package categories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

func TestDefault_Resolve(t *testing.T) {
	r := Default()

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"exact name", "Food & Dining", "food-dining", true},
		{"lower case", "food & dining", "food-dining", true},
		{"padded", "  SALARY ", "salary", true},
		{"by id", "personal-care", "personal-care", true},
		{"unknown", "Groceries", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got.ID != tt.wantID {
				t.Errorf("Resolve(%q) id = %q, want %q", tt.input, got.ID, tt.wantID)
			}
		})
	}
}

func TestRegistry_AllowedTypesFor(t *testing.T) {
	r := Default()

	if got := r.AllowedTypesFor("salary"); len(got) != 1 || got[0] != domain.TransactionTypeIncome {
		t.Errorf("AllowedTypesFor(salary) = %v, want [income]", got)
	}
	if got := r.AllowedTypesFor("business"); len(got) != 2 {
		t.Errorf("AllowedTypesFor(business) = %v, want both types", got)
	}
	if got := r.AllowedTypesFor("missing"); got != nil {
		t.Errorf("AllowedTypesFor(missing) = %v, want nil", got)
	}

	// Mutating the result must not leak into the registry.
	got := r.AllowedTypesFor("salary")
	got[0] = domain.TransactionTypeExpense
	if c, _ := r.Get("salary"); c.Allows(domain.TransactionTypeExpense) {
		t.Error("registry was mutated through AllowedTypesFor result")
	}
}

func TestRegistry_CategoriesFor(t *testing.T) {
	r := Default()

	income := r.CategoriesFor(domain.TransactionTypeIncome)
	wantIncome := []string{"salary", "freelance", "investment", "gift", "refund", "business", "other"}
	if len(income) != len(wantIncome) {
		t.Fatalf("CategoriesFor(income) returned %d categories, want %d", len(income), len(wantIncome))
	}
	for i, c := range income {
		if c.ID != wantIncome[i] {
			t.Errorf("CategoriesFor(income)[%d] = %q, want %q", i, c.ID, wantIncome[i])
		}
	}

	for _, c := range r.CategoriesFor(domain.TransactionTypeExpense) {
		if !c.Allows(domain.TransactionTypeExpense) {
			t.Errorf("CategoriesFor(expense) returned %q which does not allow expense", c.ID)
		}
		if c.ID == "salary" {
			t.Error("CategoriesFor(expense) must not include salary")
		}
	}
}

func TestNew_Validation(t *testing.T) {
	expense := []domain.TransactionType{domain.TransactionTypeExpense}

	tests := []struct {
		name    string
		cats    []domain.Category
		wantErr bool
	}{
		{
			name: "valid with default color",
			cats: []domain.Category{{ID: "a", Name: "A", AllowedTypes: expense}},
		},
		{
			name:    "empty id",
			cats:    []domain.Category{{Name: "A", AllowedTypes: expense}},
			wantErr: true,
		},
		{
			name: "duplicate id",
			cats: []domain.Category{
				{ID: "a", Name: "A", AllowedTypes: expense},
				{ID: "a", Name: "B", AllowedTypes: expense},
			},
			wantErr: true,
		},
		{
			name: "duplicate name ignoring case",
			cats: []domain.Category{
				{ID: "a", Name: "Rent", AllowedTypes: expense},
				{ID: "b", Name: "rent", AllowedTypes: expense},
			},
			wantErr: true,
		},
		{
			name:    "no allowed types",
			cats:    []domain.Category{{ID: "a", Name: "A"}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cats:    []domain.Category{{ID: "a", Name: "A", AllowedTypes: []domain.TransactionType{"transfer"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cats)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				c, _ := r.Get("a")
				if c.Color != domain.DefaultCategoryColor {
					t.Errorf("Color = %q, want default %q", c.Color, domain.DefaultCategoryColor)
				}
			}
		})
	}
}

type mockFetcher struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *mockFetcher) FetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	return m.FetchFunc(ctx, uri)
}

type mockLister struct {
	cats []domain.Category
	err  error
}

func (m *mockLister) ListActiveCategories(ctx context.Context) ([]domain.Category, error) {
	return m.cats, m.err
}

func TestLoadFile(t *testing.T) {
	catalog := []byte(`{"categories":[{"id":"rent","name":"Rent","allowed_types":["expense"]}]}`)

	t.Run("local path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.json")
		if err := os.WriteFile(path, catalog, 0o600); err != nil {
			t.Fatal(err)
		}
		r, err := LoadFile(context.Background(), path, nil)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if _, ok := r.Resolve("rent"); !ok {
			t.Error("expected rent to resolve")
		}
	})

	t.Run("gs uri", func(t *testing.T) {
		var gotURI string
		f := &mockFetcher{FetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			gotURI = uri
			return catalog, nil
		}}
		r, err := LoadFile(context.Background(), "gs://bucket/catalog.json", f)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if gotURI != "gs://bucket/catalog.json" {
			t.Errorf("fetched %q", gotURI)
		}
		if r.Len() != 1 {
			t.Errorf("Len() = %d, want 1", r.Len())
		}
	})

	t.Run("gs uri without fetcher", func(t *testing.T) {
		if _, err := LoadFile(context.Background(), "gs://bucket/c.json", nil); err == nil {
			t.Error("expected error without fetcher")
		}
	})
}

func TestLoad(t *testing.T) {
	_, err := Load(context.Background(), &mockLister{})
	if err == nil {
		t.Error("expected error for empty category table")
	}

	boom := errors.New("boom")
	_, err = Load(context.Background(), &mockLister{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want wrapped boom", err)
	}

	r, err := Load(context.Background(), &mockLister{cats: []domain.Category{
		{ID: "salary", Name: "Salary", AllowedTypes: []domain.TransactionType{domain.TransactionTypeIncome}},
	}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := r.NamesFor(domain.TransactionTypeIncome); len(got) != 1 || got[0] != "Salary" {
		t.Errorf("NamesFor(income) = %v", got)
	}
}
