package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrPaymentBackend = errors.New("payment backend error")

type SettlementState string

const (
	StatePending   SettlementState = "PENDING"
	StateSucceeded SettlementState = "SUCCEEDED"
	StateExpired   SettlementState = "EXPIRED"
	StateErrored   SettlementState = "ERRORED"
)

func (s SettlementState) IsTerminal() bool {
	return s == StateSucceeded || s == StateExpired || s == StateErrored
}

func (s SettlementState) String() string { return string(s) }

// LineItem is an order's copy of a cart line at checkout time.
type LineItem struct {
	ProductID int
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Order is an immutable checkout record. Lines are a snapshot of the cart
// at checkout; later cart edits never touch a pending order. TxRef is the
// opaque reference the payment authority resolves status lookups by.
type Order struct {
	ID        string
	UserID    int64
	Lines     []LineItem
	Total     decimal.Decimal
	TxRef     string
	CreatedAt time.Time
}
