package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrEmptyCart       = errors.New("cart is empty")
)

// Line is a cart entry. A cart holds at most one line per product;
// repeated adds merge quantities.
type Line struct {
	ProductID int
	Quantity  int
}

// PricedLine is a line resolved against the catalog, used for display and
// for order snapshots. Subtotal = UnitPrice * Quantity.
type PricedLine struct {
	ProductID int
	Name      string
	ImageURL  string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}
