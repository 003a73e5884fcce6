package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cartdomain "github.com/nochphanet/khqr-shopbot/internal/cart/domain"
	"github.com/nochphanet/khqr-shopbot/internal/checkout/domain"
)

type Service struct {
	log       *slog.Logger
	carts     CartSource
	authority PaymentAuthority
	qr        QREncoder
}

func NewService(log *slog.Logger, carts CartSource, authority PaymentAuthority, qr QREncoder) *Service {
	return &Service{log: log, carts: carts, authority: authority, qr: qr}
}

// Checkout snapshots the user's cart, asks the payment authority for a
// payment descriptor, and returns the new Order with its QR image bytes.
// On any failure the cart is left untouched so the user can retry.
// Descriptor generation is not retried here.
func (s *Service) Checkout(ctx context.Context, userID int64) (domain.Order, []byte, error) {
	lines, total, err := s.carts.SnapshotAndTotal(userID)
	if err != nil {
		return domain.Order{}, nil, err
	}

	desc, err := s.authority.GenerateDescriptor(ctx, total)
	if err != nil {
		if !errors.Is(err, domain.ErrPaymentBackend) {
			err = fmt.Errorf("%w: %v", domain.ErrPaymentBackend, err)
		}
		return domain.Order{}, nil, err
	}

	png, err := s.qr.Encode(desc.Payload)
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("%w: encode qr: %v", domain.ErrPaymentBackend, err)
	}

	order := domain.Order{
		ID:        newOrderID(),
		UserID:    userID,
		Lines:     toLineItems(lines),
		Total:     total,
		TxRef:     desc.TxRef,
		CreatedAt: time.Now().UTC(),
	}
	s.log.Info("order issued",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total", order.Total.StringFixed(2),
		"tx_ref", order.TxRef,
	)
	return order, png, nil
}

// newOrderID combines a millisecond timestamp with a random suffix so IDs
// stay sortable while remaining unguessable enough to avoid collisions.
func newOrderID() string {
	return fmt.Sprintf("ORDER%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func toLineItems(lines []cartdomain.PricedLine) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.LineItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return items
}
