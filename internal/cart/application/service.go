package application

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nochphanet/khqr-shopbot/internal/cart/domain"
)

// Ledger owns every user's cart. The carts map is guarded by mu; each cart
// carries its own mutex so commands for one user serialize without blocking
// other users. Clearing empties the line slice instead of deleting the
// container, so a concurrent add can never land on an orphaned cart.
type Ledger struct {
	catalog CatalogReader

	mu    sync.RWMutex
	carts map[int64]*cart
}

type cart struct {
	mu    sync.Mutex
	lines []domain.Line
}

func NewLedger(catalog CatalogReader) *Ledger {
	return &Ledger{
		catalog: catalog,
		carts:   make(map[int64]*cart),
	}
}

func (l *Ledger) get(userID int64, create bool) *cart {
	l.mu.RLock()
	c, ok := l.carts[userID]
	l.mu.RUnlock()
	if ok || !create {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok = l.carts[userID]; ok {
		return c
	}
	c = &cart{}
	l.carts[userID] = c
	return c
}

// AddItem merges quantity into the user's existing line for the product, or
// inserts a new line. The cart is created lazily on first add.
func (l *Ledger) AddItem(userID int64, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	if _, ok := l.catalog.Find(productID); !ok {
		return fmt.Errorf("%w: product %d", domain.ErrItemNotFound, productID)
	}

	c := l.get(userID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	c.lines = append(c.lines, domain.Line{ProductID: productID, Quantity: quantity})
	return nil
}

// View returns the user's cart resolved against the catalog, in insertion
// order. An absent cart yields an empty slice.
func (l *Ledger) View(userID int64) []domain.PricedLine {
	c := l.get(userID, false)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return l.priced(c.lines)
}

// Clear drops the user's cart. Clearing an absent cart is a no-op.
func (l *Ledger) Clear(userID int64) {
	c := l.get(userID, false)
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

// SnapshotAndTotal returns an immutable copy of the user's lines plus the
// cart total. The snapshot shares nothing with the live cart, so later
// edits never affect an order built from it.
func (l *Ledger) SnapshotAndTotal(userID int64) ([]domain.PricedLine, decimal.Decimal, error) {
	c := l.get(userID, false)
	if c == nil {
		return nil, decimal.Zero, domain.ErrEmptyCart
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return nil, decimal.Zero, domain.ErrEmptyCart
	}

	priced := l.priced(c.lines)
	total := decimal.Zero
	for _, pl := range priced {
		total = total.Add(pl.Subtotal)
	}
	return priced, total, nil
}

func (l *Ledger) priced(lines []domain.Line) []domain.PricedLine {
	out := make([]domain.PricedLine, 0, len(lines))
	for _, line := range lines {
		p, ok := l.catalog.Find(line.ProductID)
		if !ok {
			// Catalog is immutable after load, so a line always resolves.
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		out = append(out, domain.PricedLine{
			ProductID: line.ProductID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
			Subtotal:  p.Price.Mul(qty),
		})
	}
	return out
}
