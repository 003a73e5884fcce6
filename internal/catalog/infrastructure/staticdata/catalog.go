// Package staticdata ships the fixed shop catalog as an embedded JSON
// table. The table is decoded once at startup and handed to the catalog
// service, which treats it as immutable from then on.
package staticdata

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/nochphanet/khqr-shopbot/internal/catalog/domain"
)

//go:embed catalog.json
var raw []byte

type table struct {
	Categories []domain.Category           `json:"categories"`
	Products   map[string][]domain.Product `json:"products"`
}

// Load decodes and validates the embedded catalog. Malformed data is a
// programming error in the shipped table, so callers should fail fast.
func Load() ([]domain.Category, map[string][]domain.Product, error) {
	var t table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}

	known := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		known[c.Name] = true
	}

	seen := make(map[int]string)
	for category, products := range t.Products {
		if !known[category] {
			return nil, nil, fmt.Errorf("catalog: products listed under unknown category %q", category)
		}
		for _, p := range products {
			if prev, dup := seen[p.ID]; dup {
				return nil, nil, fmt.Errorf("catalog: product id %d appears in both %q and %q", p.ID, prev, category)
			}
			seen[p.ID] = category
			if p.Price.IsNegative() {
				return nil, nil, fmt.Errorf("catalog: product %d has negative price %s", p.ID, p.Price)
			}
			if p.Name == "" {
				return nil, nil, fmt.Errorf("catalog: product %d has no name", p.ID)
			}
		}
	}
	return t.Categories, t.Products, nil
}
