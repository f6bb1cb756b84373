package domain

// DefaultCategoryColor is used for categories without a colour and for the
// uncategorized bucket in summaries.
const DefaultCategoryColor = "#6B7280"

// UncategorizedName labels the summary bucket for transactions without a category.
const UncategorizedName = "Uncategorized"

// Category is read-only reference data used to classify transactions.
type Category struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Color        string            `json:"color"`
	Icon         string            `json:"icon,omitempty"`
	AllowedTypes []TransactionType `json:"allowed_types"`
}

// Allows reports whether t is in the category's allowed type set.
func (c Category) Allows(t TransactionType) bool {
	for _, at := range c.AllowedTypes {
		if at == t {
			return true
		}
	}
	return false
}
