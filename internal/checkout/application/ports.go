package application

import (
	"context"

	"github.com/shopspring/decimal"

	cartdomain "github.com/nochphanet/khqr-shopbot/internal/cart/domain"
)

// Descriptor is a payment request as issued by the payment authority:
// the scannable payload and the opaque reference later status checks key on.
type Descriptor struct {
	Payload string
	TxRef   string
}

type PaymentAuthority interface {
	GenerateDescriptor(ctx context.Context, amount decimal.Decimal) (Descriptor, error)
}

type QREncoder interface {
	Encode(payload string) ([]byte, error)
}

type CartSource interface {
	SnapshotAndTotal(userID int64) ([]cartdomain.PricedLine, decimal.Decimal, error)
}
