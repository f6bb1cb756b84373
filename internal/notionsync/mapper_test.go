package notionsync

import (
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

func TestTransactionToNotionProperties(t *testing.T) {
	tx := ledgerTx("tx-1")
	tx.Notes = "with friends"
	tx.AICategorized = true
	tx.CreatedAt = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	props := TransactionToNotionProperties(tx, "Food & Dining")

	title, ok := props[PropDescription].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "Coffee tx-1" {
		t.Errorf("Description = %#v", props[PropDescription])
	}

	amount := props[PropAmount].(notionapi.NumberProperty)
	signed := props[PropSignedAmount].(notionapi.NumberProperty)
	if amount.Number != 12.5 || signed.Number != -12.5 {
		t.Errorf("Amount = %v, Signed = %v", amount.Number, signed.Number)
	}

	if typ := props[PropType].(notionapi.SelectProperty); typ.Select.Name != "expense" {
		t.Errorf("Type = %q", typ.Select.Name)
	}
	if cb := props[PropAICategorized].(notionapi.CheckboxProperty); !cb.Checkbox {
		t.Error("AI Categorized should be checked")
	}

	date := props[PropDate].(notionapi.DateProperty)
	if got := time.Time(*date.Date.Start); !got.Equal(tx.Date) {
		t.Errorf("Date = %v, want %v", got, tx.Date)
	}
	for _, name := range []string{PropNotes, PropCreatedAt, PropCategory, PropUserID} {
		if _, ok := props[name]; !ok {
			t.Errorf("missing property %s", name)
		}
	}
}

func TestTransactionToNotionProperties_OptionalFields(t *testing.T) {
	tx := ledgerTx("tx-1")
	tx.Type = domain.TransactionTypeIncome

	props := TransactionToNotionProperties(tx, "")
	for _, name := range []string{PropNotes, PropCreatedAt, PropCategory} {
		if _, ok := props[name]; ok {
			t.Errorf("unexpected property %s", name)
		}
	}
	if signed := props[PropSignedAmount].(notionapi.NumberProperty); signed.Number != 12.5 {
		t.Errorf("Signed Amount = %v, want 12.5", signed.Number)
	}
}
