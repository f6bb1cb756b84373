package classifier

import (
	"strings"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

// buildPrompt renders the categorization instructions, the category lists
// from the registry, and the transaction to classify.
func buildPrompt(reg *categories.Registry, req Request) string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant that categorizes transactions.\n\n")

	b.WriteString("Use ONLY the following categories.\n\n")
	b.WriteString("Expense categories:\n")
	for _, name := range reg.NamesFor(domain.TransactionTypeExpense) {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nIncome categories:\n")
	for _, name := range reg.NamesFor(domain.TransactionTypeIncome) {
		b.WriteString("  - " + name + "\n")
	}

	b.WriteString("\nTransaction:\n")
	b.WriteString("- description: " + strings.TrimSpace(req.Description) + "\n")
	if req.Amount != nil {
		b.WriteString("- amount: " + req.Amount.String() + "\n")
	}
	if req.Date != nil {
		b.WriteString("- date: " + req.Date.Format("2006-01-02") + "\n")
	}

	b.WriteString("\nReturn a single JSON object with these fields:\n")
	b.WriteString("- \"suggested_category\": string, EXACTLY one of the category names above\n")
	b.WriteString("- \"confidence\": number between 0 and 1\n")
	b.WriteString("- \"transaction_type\": \"income\" or \"expense\"\n")
	b.WriteString("- \"extracted_amount\": positive number mentioned in the description, or null\n")
	b.WriteString("- \"extracted_date\": date mentioned in the description as \"YYYY-MM-DD\", or null\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("1. The category must belong to the list matching transaction_type.\n")
	b.WriteString("2. If you are unsure, use \"Other\" with a low confidence.\n")
	b.WriteString("3. Never invent amounts or dates that are not in the text.\n\n")
	b.WriteString("Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n")

	return b.String()
}
