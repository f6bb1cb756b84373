package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// fallbackConfidence replaces a missing or out-of-range confidence.
const fallbackConfidence = 0.5

// parseSuggestion turns raw model output into a normalised suggestion.
// Malformed JSON is a classification error; individual bad fields are
// normalised or dropped.
func parseSuggestion(raw string, reg *categories.Registry) (domain.AISuggestion, error) {
	clean := cleanModelJSON(raw)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return domain.AISuggestion{}, &domain.ClassificationError{Reason: "malformed model response", Err: err}
	}

	s := domain.AISuggestion{Confidence: fallbackConfidence}

	name, _ := getStringField(obj, "suggested_category")
	s.SuggestedCategory = strings.TrimSpace(name)

	typeStr, _ := getStringField(obj, "transaction_type")
	typ, typeOK := domain.ParseTransactionType(typeStr)

	cat, catOK := reg.Resolve(s.SuggestedCategory)
	switch {
	case typeOK:
		s.Type = typ
	case catOK && len(cat.AllowedTypes) == 1:
		s.Type = cat.AllowedTypes[0]
	default:
		s.Type = domain.TransactionTypeExpense
	}
	if catOK && cat.Allows(s.Type) {
		id := cat.ID
		s.CategoryID = &id
		s.SuggestedCategory = cat.Name
	}

	if c, ok := getFloat64Field(obj, "confidence"); ok && c >= 0 && c <= 1 {
		s.Confidence = c
	}

	if amount, ok := getDecimalField(obj, "extracted_amount"); ok {
		amount = amount.Abs().Round(2)
		if amount.IsPositive() {
			s.ExtractedAmount = &amount
		}
	}

	if dateStr, ok := getStringField(obj, "extracted_date"); ok {
		if d, err := parseDate(dateStr); err == nil {
			s.ExtractedDate = &d
		}
	}

	return s, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func getStringField(obj map[string]interface{}, key string) (string, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func getFloat64Field(obj map[string]interface{}, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}
	return 0, false
}

func getDecimalField(obj map[string]interface{}, key string) (decimal.Decimal, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return decimal.Decimal{}, false
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		cleaned := strings.NewReplacer("$", "", "£", "", "€", "", ",", "").Replace(strings.TrimSpace(n))
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parseDate: unrecognised date %q", s)
}
