package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product is immutable after catalog load. IDs are unique across the whole
// catalog, not per category.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image"`
}
