package categories

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// ObjectFetcher downloads catalog bytes from object storage.
type ObjectFetcher interface {
	// FetchFromGCS downloads file bytes from the given gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// Lister returns categories from an external table.
type Lister interface {
	// ListActiveCategories returns the active categories in catalog order.
	ListActiveCategories(ctx context.Context) ([]domain.Category, error)
}

// LoadFile reads a JSON catalog from a local path or a gs:// URI.
func LoadFile(ctx context.Context, location string, fetcher ObjectFetcher) (*Registry, error) {
	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(location, "gs://") {
		if fetcher == nil {
			return nil, fmt.Errorf("LoadFile: no object fetcher for %s", location)
		}
		data, err = fetcher.FetchFromGCS(ctx, location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("LoadFile: reading %s: %w", location, err)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %s: %w", location, err)
	}
	return r, nil
}

// Load builds a registry from a lister such as the BigQuery categories table.
func Load(ctx context.Context, lister Lister) (*Registry, error) {
	cats, err := lister.ListActiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: list categories: %w", err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("Load: no active categories found")
	}
	return New(cats)
}
