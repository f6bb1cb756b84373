package notionsync

import (
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the ledger mirror database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropUserID        = "User ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropSignedAmount  = "Signed Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropNotes         = "Notes"
	PropAICategorized = "AI Categorized"
	PropCreatedAt     = "Created At"
)

// TransactionToNotionProperties converts a ledger transaction to the
// properties of a mirror page. categoryName is the display name of the
// transaction's category, or empty when it has none.
func TransactionToNotionProperties(tx domain.Transaction, categoryName string) notionapi.Properties {
	amount, _ := tx.Amount.Float64()
	signed, _ := tx.Signed().Float64()

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		PropUserID: notionapi.RichTextProperty{
			RichText: richText(tx.UserID),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: dateOf(tx.Date),
			},
		},
		PropAmount: notionapi.NumberProperty{
			Number: amount,
		},
		PropSignedAmount: notionapi.NumberProperty{
			Number: signed,
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		},
		PropAICategorized: notionapi.CheckboxProperty{
			Checkbox: tx.AICategorized,
		},
	}

	if categoryName != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: categoryName,
			},
		}
	}

	if tx.Notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{
			RichText: richText(tx.Notes),
		}
	}

	if !tx.CreatedAt.IsZero() {
		props[PropCreatedAt] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: dateOf(tx.CreatedAt),
			},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

func dateOf(t time.Time) *notionapi.Date {
	d := notionapi.Date(t.UTC())
	return &d
}
