package categories

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

//go:embed default_catalog.json
var defaultCatalog []byte

// Catalog is the on-disk form of the registry.
type Catalog struct {
	Categories []domain.Category `json:"categories"`
}

// Registry is an immutable, ordered set of categories with case-insensitive
// name lookup. It is safe for concurrent use.
type Registry struct {
	ordered []domain.Category
	byID    map[string]int
	byName  map[string]int
}

// New validates cats and builds a registry preserving their order.
func New(cats []domain.Category) (*Registry, error) {
	r := &Registry{
		ordered: make([]domain.Category, 0, len(cats)),
		byID:    make(map[string]int, len(cats)),
		byName:  make(map[string]int, len(cats)),
	}

	for i, c := range cats {
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" {
			return nil, fmt.Errorf("categories.New: category %d: empty id", i)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("categories.New: category %q: empty name", c.ID)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("categories.New: duplicate id %q", c.ID)
		}
		key := normalizeName(c.Name)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("categories.New: duplicate name %q", c.Name)
		}
		if len(c.AllowedTypes) == 0 {
			return nil, fmt.Errorf("categories.New: category %q: no allowed types", c.ID)
		}
		for _, t := range c.AllowedTypes {
			if !t.Valid() {
				return nil, fmt.Errorf("categories.New: category %q: unknown type %q", c.ID, t)
			}
		}
		if c.Color == "" {
			c.Color = domain.DefaultCategoryColor
		}
		c.AllowedTypes = append([]domain.TransactionType(nil), c.AllowedTypes...)

		r.byID[c.ID] = len(r.ordered)
		r.byName[key] = len(r.ordered)
		r.ordered = append(r.ordered, c)
	}

	return r, nil
}

// Parse builds a registry from a JSON catalog.
func Parse(data []byte) (*Registry, error) {
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("categories.Parse: decoding catalog: %w", err)
	}
	return New(cat.Categories)
}

// Default returns the registry built from the embedded catalog.
func Default() *Registry {
	r, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded category catalog is invalid: %v", err))
	}
	return r
}

// Resolve finds a category by name, ignoring case and surrounding
// whitespace. An exact id also resolves.
func (r *Registry) Resolve(name string) (domain.Category, bool) {
	if i, ok := r.byName[normalizeName(name)]; ok {
		return clone(r.ordered[i]), true
	}
	if i, ok := r.byID[strings.TrimSpace(name)]; ok {
		return clone(r.ordered[i]), true
	}
	return domain.Category{}, false
}

// Get returns the category with the given id.
func (r *Registry) Get(id string) (domain.Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Category{}, false
	}
	return clone(r.ordered[i]), true
}

// AllowedTypesFor returns the allowed transaction types of a category, or
// nil when the id is unknown.
func (r *Registry) AllowedTypesFor(id string) []domain.TransactionType {
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	return append([]domain.TransactionType(nil), r.ordered[i].AllowedTypes...)
}

// CategoriesFor returns, in catalog order, the categories that accept t.
func (r *Registry) CategoriesFor(t domain.TransactionType) []domain.Category {
	var out []domain.Category
	for _, c := range r.ordered {
		if c.Allows(t) {
			out = append(out, clone(c))
		}
	}
	return out
}

// NamesFor is CategoriesFor reduced to names.
func (r *Registry) NamesFor(t domain.TransactionType) []string {
	var out []string
	for _, c := range r.ordered {
		if c.Allows(t) {
			out = append(out, c.Name)
		}
	}
	return out
}

// All returns every category in catalog order.
func (r *Registry) All() []domain.Category {
	out := make([]domain.Category, len(r.ordered))
	for i, c := range r.ordered {
		out[i] = clone(c)
	}
	return out
}

// Len returns the number of categories.
func (r *Registry) Len() int { return len(r.ordered) }

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func clone(c domain.Category) domain.Category {
	c.AllowedTypes = append([]domain.TransactionType(nil), c.AllowedTypes...)
	return c
}
