package classifier

import (
	"errors"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding text", "Here you go: {\"a\":1} hope that helps", `{"a":1}`},
		{"whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSuggestion(t *testing.T) {
	reg := categories.Default()

	tests := []struct {
		name           string
		raw            string
		wantCategoryID string // empty means nil
		wantName       string
		wantType       domain.TransactionType
		wantConfidence float64
		wantAmount     string // empty means nil
		wantDate       string // empty means nil
	}{
		{
			name:           "complete response",
			raw:            `{"suggested_category":"Food & Dining","confidence":0.92,"transaction_type":"expense","extracted_amount":12.5,"extracted_date":"2024-03-15"}`,
			wantCategoryID: "food-dining",
			wantName:       "Food & Dining",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.92,
			wantAmount:     "12.5",
			wantDate:       "2024-03-15",
		},
		{
			name:           "case insensitive category",
			raw:            `{"suggested_category":"salary","confidence":0.8,"transaction_type":"income"}`,
			wantCategoryID: "salary",
			wantName:       "Salary",
			wantType:       domain.TransactionTypeIncome,
			wantConfidence: 0.8,
		},
		{
			name:           "unknown category keeps raw name",
			raw:            `{"suggested_category":"Groceries","confidence":0.7,"transaction_type":"expense"}`,
			wantName:       "Groceries",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.7,
		},
		{
			name:           "confidence out of range",
			raw:            `{"suggested_category":"Travel","confidence":1.7,"transaction_type":"expense"}`,
			wantCategoryID: "travel",
			wantName:       "Travel",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.5,
		},
		{
			name:           "missing confidence",
			raw:            `{"suggested_category":"Travel","transaction_type":"expense"}`,
			wantCategoryID: "travel",
			wantName:       "Travel",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.5,
		},
		{
			name:           "type inferred from income-only category",
			raw:            `{"suggested_category":"Salary","confidence":0.6,"transaction_type":"bogus"}`,
			wantCategoryID: "salary",
			wantName:       "Salary",
			wantType:       domain.TransactionTypeIncome,
			wantConfidence: 0.6,
		},
		{
			name:           "missing type defaults to expense",
			raw:            `{"suggested_category":"Business","confidence":0.6}`,
			wantCategoryID: "business",
			wantName:       "Business",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.6,
		},
		{
			name:           "category incompatible with type is dropped",
			raw:            `{"suggested_category":"Salary","confidence":0.9,"transaction_type":"expense"}`,
			wantName:       "Salary",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.9,
		},
		{
			name:           "amount string with currency and negative sign",
			raw:            `{"suggested_category":"Shopping","confidence":0.5,"transaction_type":"expense","extracted_amount":"-$1,234.567"}`,
			wantCategoryID: "shopping",
			wantName:       "Shopping",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.5,
			wantAmount:     "1234.57",
		},
		{
			name:           "zero amount and bad date dropped",
			raw:            `{"suggested_category":"Shopping","confidence":0.5,"transaction_type":"expense","extracted_amount":0,"extracted_date":"last tuesday"}`,
			wantCategoryID: "shopping",
			wantName:       "Shopping",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.5,
		},
		{
			name:           "fenced response",
			raw:            "```json\n{\"suggested_category\":\"Utilities\",\"confidence\":0.75,\"transaction_type\":\"expense\",\"extracted_date\":\"2024-01-02T10:00:00Z\"}\n```",
			wantCategoryID: "utilities",
			wantName:       "Utilities",
			wantType:       domain.TransactionTypeExpense,
			wantConfidence: 0.75,
			wantDate:       "2024-01-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.raw, reg)
			if err != nil {
				t.Fatalf("parseSuggestion() error = %v", err)
			}

			if tt.wantCategoryID == "" {
				if got.CategoryID != nil {
					t.Errorf("CategoryID = %q, want nil", *got.CategoryID)
				}
			} else if got.CategoryID == nil || *got.CategoryID != tt.wantCategoryID {
				t.Errorf("CategoryID = %v, want %q", got.CategoryID, tt.wantCategoryID)
			}
			if got.SuggestedCategory != tt.wantName {
				t.Errorf("SuggestedCategory = %q, want %q", got.SuggestedCategory, tt.wantName)
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}

			if tt.wantAmount == "" {
				if got.ExtractedAmount != nil {
					t.Errorf("ExtractedAmount = %s, want nil", got.ExtractedAmount)
				}
			} else if got.ExtractedAmount == nil || got.ExtractedAmount.String() != tt.wantAmount {
				t.Errorf("ExtractedAmount = %v, want %s", got.ExtractedAmount, tt.wantAmount)
			}

			if tt.wantDate == "" {
				if got.ExtractedDate != nil {
					t.Errorf("ExtractedDate = %v, want nil", got.ExtractedDate)
				}
			} else if got.ExtractedDate == nil || got.ExtractedDate.Format("2006-01-02") != tt.wantDate {
				t.Errorf("ExtractedDate = %v, want %s", got.ExtractedDate, tt.wantDate)
			}
		})
	}
}

func TestParseSuggestion_Malformed(t *testing.T) {
	reg := categories.Default()

	for _, raw := range []string{"not json at all", `{"suggested_category": }`, "[1,2,3]"} {
		_, err := parseSuggestion(raw, reg)
		if !errors.Is(err, domain.ErrClassification) {
			t.Errorf("parseSuggestion(%q) error = %v, want classification error", raw, err)
		}
	}
}
