package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

func suggestion(confidence float64, category string) domain.AISuggestion {
	amount := dec("42.00")
	d := day(2024, 1, 9)
	return domain.AISuggestion{
		SuggestedCategory: category,
		CategoryID:        ptr(category),
		Confidence:        confidence,
		Type:              domain.TransactionTypeExpense,
		ExtractedAmount:   &amount,
		ExtractedDate:     &d,
	}
}

func TestDraft_LowConfidenceKeepsUserAmount(t *testing.T) {
	reg := categories.Default()
	d := ledger.NewDraft()
	d.SetDescription("Dinner at Luigi's")
	d.SetAmount(dec("38.50"))

	d.ApplySuggestion(suggestion(0.42, "food-dining"), reg, ledger.DefaultAcceptancePolicy)

	if !d.Amount.Equal(dec("38.50")) {
		t.Errorf("Amount = %s, want user-entered 38.50", d.Amount)
	}
	if d.CategoryID != nil {
		t.Errorf("CategoryID = %q, want nil below the acceptance threshold", *d.CategoryID)
	}
	if d.Date == nil || !d.Date.Equal(day(2024, 1, 9)) {
		t.Errorf("Date = %v, want extracted date for an unedited field", d.Date)
	}
}

func TestDraft_NeverOverwritesEditedFields(t *testing.T) {
	reg := categories.Default()
	userDate := day(2024, 1, 1)

	d := ledger.NewDraft()
	d.SetAmount(dec("10"))
	d.SetDate(userDate)
	d.SetType(domain.TransactionTypeExpense)
	d.SetCategory(ptr("shopping"))

	filled := d.ApplySuggestion(suggestion(0.99, "food-dining"), reg, ledger.DefaultAcceptancePolicy)

	if len(filled) != 0 {
		t.Errorf("ApplySuggestion filled %v, want nothing", filled)
	}
	if !d.Amount.Equal(dec("10")) || !d.Date.Equal(userDate) || *d.CategoryID != "shopping" {
		t.Errorf("draft changed: amount=%s date=%v category=%s", d.Amount, d.Date, *d.CategoryID)
	}
	if d.AICategorized() {
		t.Error("AICategorized must be false for a user-chosen category")
	}
}

func TestDraft_FillsUneditedFields(t *testing.T) {
	reg := categories.Default()
	d := ledger.NewDraft()
	d.SetDescription("Lunch")

	filled := d.ApplySuggestion(suggestion(0.8, "food-dining"), reg, ledger.DefaultAcceptancePolicy)

	want := []ledger.DraftField{ledger.FieldType, ledger.FieldAmount, ledger.FieldDate, ledger.FieldCategory}
	if len(filled) != len(want) {
		t.Fatalf("filled = %v, want %v", filled, want)
	}
	for i := range want {
		if filled[i] != want[i] {
			t.Errorf("filled[%d] = %q, want %q", i, filled[i], want[i])
		}
	}
	if !d.AICategorized() {
		t.Error("AICategorized = false, want true")
	}
	if got := d.EditedFields(); len(got) != 1 || got[0] != ledger.FieldDescription {
		t.Errorf("EditedFields() = %v, want [description]", got)
	}

	svc, _ := newTestService(t)
	tx, err := svc.Create(context.Background(), d.Input())
	if err != nil {
		t.Fatalf("Create(draft) error = %v", err)
	}
	if !tx.AICategorized || *tx.CategoryID != "food-dining" || !tx.Amount.Equal(dec("42")) {
		t.Errorf("created = %+v", tx)
	}
}

func TestDraft_SkipsCategoryIncompatibleWithEditedType(t *testing.T) {
	reg := categories.Default()
	d := ledger.NewDraft()
	d.SetType(domain.TransactionTypeIncome)

	d.ApplySuggestion(suggestion(0.95, "food-dining"), reg, ledger.DefaultAcceptancePolicy)

	if d.Type != domain.TransactionTypeIncome {
		t.Errorf("Type = %q, want user-entered income", d.Type)
	}
	if d.CategoryID != nil {
		t.Errorf("CategoryID = %q, want nil for an expense-only category on income", *d.CategoryID)
	}
}

func TestDraft_UnresolvedCategoryIgnored(t *testing.T) {
	reg := categories.Default()
	d := ledger.NewDraft()

	s := suggestion(1, "")
	s.CategoryID = nil
	s.SuggestedCategory = "Pet Supplies"
	d.ApplySuggestion(s, reg, ledger.AcceptancePolicy{})

	if d.CategoryID != nil {
		t.Errorf("CategoryID = %q, want nil", *d.CategoryID)
	}
}

func TestDraft_InputWithoutAmountFailsValidation(t *testing.T) {
	d := ledger.NewDraft()
	d.SetDescription("x")
	d.SetType(domain.TransactionTypeExpense)
	d.SetDate(time.Now())

	in := d.Input()
	if !in.Amount.Equal(decimal.Zero) {
		t.Fatalf("Input().Amount = %s, want zero", in.Amount)
	}
	svc, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Error("Create() with missing amount must fail")
	}
}

func TestDraft_EditedCategoryConstrainsType(t *testing.T) {
	reg := categories.Default()

	tests := []struct {
		name     string
		category string
		suggest  domain.TransactionType
		wantType domain.TransactionType
	}{
		{name: "single-type category decides", category: "salary", suggest: domain.TransactionTypeExpense, wantType: domain.TransactionTypeIncome},
		{name: "single-type category agrees", category: "food-dining", suggest: domain.TransactionTypeExpense, wantType: domain.TransactionTypeExpense},
		{name: "mixed category takes suggestion", category: "business", suggest: domain.TransactionTypeIncome, wantType: domain.TransactionTypeIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ledger.NewDraft()
			d.SetDescription("Monthly pay")
			d.SetAmount(dec("2500"))
			d.SetDate(day(2024, 1, 31))
			d.SetCategory(ptr(tt.category))

			d.ApplySuggestion(domain.AISuggestion{Type: tt.suggest, Confidence: 0.9}, reg, ledger.DefaultAcceptancePolicy)

			if d.Type != tt.wantType {
				t.Fatalf("Type = %q, want %q", d.Type, tt.wantType)
			}
			if *d.CategoryID != tt.category || d.AICategorized() {
				t.Errorf("category = %s ai=%v, want the user's %s", *d.CategoryID, d.AICategorized(), tt.category)
			}

			svc, _ := newTestService(t)
			if _, err := svc.Create(context.Background(), d.Input()); err != nil {
				t.Errorf("Create(draft) error = %v", err)
			}
		})
	}
}

func TestDraft_DropsStaleSuggestedCategory(t *testing.T) {
	reg := categories.Default()
	d := ledger.NewDraft()
	d.SetDescription("Transfer from Anna")
	d.SetAmount(dec("60"))
	d.SetDate(day(2024, 1, 12))

	d.ApplySuggestion(suggestion(0.9, "food-dining"), reg, ledger.DefaultAcceptancePolicy)
	if d.CategoryID == nil || *d.CategoryID != "food-dining" || !d.AICategorized() {
		t.Fatalf("first suggestion: category = %v ai=%v", d.CategoryID, d.AICategorized())
	}

	filled := d.ApplySuggestion(domain.AISuggestion{Type: domain.TransactionTypeIncome, Confidence: 0.9}, reg, ledger.DefaultAcceptancePolicy)

	if d.Type != domain.TransactionTypeIncome {
		t.Fatalf("Type = %q, want income", d.Type)
	}
	if d.CategoryID != nil || d.AICategorized() {
		t.Errorf("category = %v ai=%v, want the expense-only category dropped", d.CategoryID, d.AICategorized())
	}
	if len(filled) != 2 || filled[0] != ledger.FieldType || filled[1] != ledger.FieldCategory {
		t.Errorf("filled = %v, want [transaction_type category_id]", filled)
	}

	svc, _ := newTestService(t)
	tx, err := svc.Create(context.Background(), d.Input())
	if err != nil {
		t.Fatalf("Create(draft) error = %v", err)
	}
	if tx.AICategorized || tx.CategoryID != nil {
		t.Errorf("created = %+v, want uncategorized", tx)
	}
}
