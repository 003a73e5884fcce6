package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	cartapp "github.com/nochphanet/khqr-shopbot/internal/cart/application"
	cartdomain "github.com/nochphanet/khqr-shopbot/internal/cart/domain"
	catalogapp "github.com/nochphanet/khqr-shopbot/internal/catalog/application"
	catalogdomain "github.com/nochphanet/khqr-shopbot/internal/catalog/domain"
	checkoutapp "github.com/nochphanet/khqr-shopbot/internal/checkout/application"
	checkoutdomain "github.com/nochphanet/khqr-shopbot/internal/checkout/domain"
	"github.com/nochphanet/khqr-shopbot/internal/settlement"
)

const (
	btnViewCart = "View Cart 🛒"
	btnBack     = "Back to Categories"
)

// Shop wires the storefront conversation onto a chat transport. All
// platform framing stays behind the Transport port; handlers only deal in
// user IDs and text.
type Shop struct {
	log         *slog.Logger
	catalog     *catalogapp.Service
	carts       *cartapp.Ledger
	checkout    *checkoutapp.Service
	settlements *settlement.Registry
	transport   Transport
}

func NewShop(
	log *slog.Logger,
	catalog *catalogapp.Service,
	carts *cartapp.Ledger,
	checkout *checkoutapp.Service,
	settlements *settlement.Registry,
	transport Transport,
) *Shop {
	return &Shop{
		log:         log,
		catalog:     catalog,
		carts:       carts,
		checkout:    checkout,
		settlements: settlements,
		transport:   transport,
	}
}

// Register attaches every command and text handler to the transport.
func (s *Shop) Register() {
	s.transport.OnCommand("start", s.guard(s.handleStart))
	s.transport.OnCommand("add", s.guard(s.handleAdd))
	s.transport.OnCommand("clear", s.guard(s.handleClear))
	s.transport.OnCommand("checkout", s.guard(s.handleCheckout))

	names := make([]string, 0)
	for _, c := range s.catalog.Categories() {
		names = append(names, c.Name)
	}
	s.transport.OnText(names, s.guard(s.handleCategory))
	s.transport.OnText([]string{btnViewCart}, s.guard(s.handleViewCart))
	s.transport.OnText([]string{btnBack}, s.guard(s.handleBack))
}

// guard is the top-level error boundary: a handler error is logged and
// answered with a generic apology, never propagated to the platform loop.
func (s *Shop) guard(h Handler) Handler {
	return func(ctx context.Context, msg Message) error {
		if err := h(ctx, msg); err != nil {
			s.log.Error("handler failed", "user_id", msg.UserID, "text", msg.Text, "err", err)
			if err := s.transport.SendText(ctx, msg.UserID, "An error occurred. Please try again later."); err != nil {
				s.log.Error("apology send failed", "user_id", msg.UserID, "err", err)
			}
		}
		return nil
	}
}

func (s *Shop) handleStart(ctx context.Context, msg Message) error {
	return s.transport.SendMenu(ctx, msg.UserID,
		"Welcome to our Clothing Shop! 🛍️\n\nChoose a category to start shopping:",
		s.categoryRows(),
	)
}

func (s *Shop) handleBack(ctx context.Context, msg Message) error {
	return s.transport.SendMenu(ctx, msg.UserID, "Choose a category:", s.categoryRows())
}

func (s *Shop) handleCategory(ctx context.Context, msg Message) error {
	products, err := s.catalog.Items(msg.Text)
	if err != nil {
		if errors.Is(err, catalogapp.ErrCategoryNotFound) {
			return s.transport.SendText(ctx, msg.UserID, "That category does not exist.")
		}
		return err
	}

	for _, p := range products {
		caption := productCaption(p)
		img := Image{URL: p.ImageURL}
		if err := s.transport.SendImage(ctx, msg.UserID, img, caption); err != nil {
			// Broken image URLs degrade to a plain text listing.
			s.log.Warn("product image send failed", "product_id", p.ID, "err", err)
			if err := s.transport.SendText(ctx, msg.UserID, "❌ Image unavailable\n\n"+caption); err != nil {
				return err
			}
		}
	}

	return s.transport.SendMenu(ctx, msg.UserID, "What would you like to do?", [][]string{
		{btnViewCart},
		{btnBack},
	})
}

func (s *Shop) handleAdd(ctx context.Context, msg Message) error {
	if len(msg.Args) < 1 {
		return s.transport.SendText(ctx, msg.UserID, "Please provide a valid product ID. Example: /add 1 2")
	}
	productID, err := strconv.Atoi(msg.Args[0])
	if err != nil {
		return s.transport.SendText(ctx, msg.UserID, "Please provide a valid product ID. Example: /add 1 2")
	}
	quantity := 1
	if len(msg.Args) > 1 {
		quantity, err = strconv.Atoi(msg.Args[1])
		if err != nil {
			return s.transport.SendText(ctx, msg.UserID, "Quantity must be a number. Example: /add 1 2")
		}
	}

	if err := s.carts.AddItem(msg.UserID, productID, quantity); err != nil {
		switch {
		case errors.Is(err, cartdomain.ErrItemNotFound):
			return s.transport.SendText(ctx, msg.UserID, "Product not found!")
		case errors.Is(err, cartdomain.ErrInvalidQuantity):
			return s.transport.SendText(ctx, msg.UserID, "Quantity must be at least 1.")
		default:
			return err
		}
	}

	p, _ := s.catalog.Find(productID)
	return s.transport.SendText(ctx, msg.UserID, fmt.Sprintf("Added %dx %s to your cart!", quantity, p.Name))
}

func (s *Shop) handleViewCart(ctx context.Context, msg Message) error {
	lines := s.carts.View(msg.UserID)
	if len(lines) == 0 {
		return s.transport.SendText(ctx, msg.UserID, "Your cart is empty!")
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
		caption := fmt.Sprintf("%s\nQuantity: %d\nSubtotal: $%s", line.Name, line.Quantity, line.Subtotal.StringFixed(2))
		if err := s.transport.SendImage(ctx, msg.UserID, Image{URL: line.ImageURL}, caption); err != nil {
			s.log.Warn("cart image send failed", "product_id", line.ProductID, "err", err)
			if err := s.transport.SendText(ctx, msg.UserID, "❌ Image unavailable\n\n"+caption); err != nil {
				return err
			}
		}
	}

	summary := fmt.Sprintf("Total: $%s\n\nCommands:\n/checkout - Proceed to payment\n/clear - Clear cart", total.StringFixed(2))
	return s.transport.SendText(ctx, msg.UserID, summary)
}

func (s *Shop) handleClear(ctx context.Context, msg Message) error {
	s.carts.Clear(msg.UserID)
	return s.transport.SendText(ctx, msg.UserID, "Cart cleared!")
}

func (s *Shop) handleCheckout(ctx context.Context, msg Message) error {
	order, qrPNG, err := s.checkout.Checkout(ctx, msg.UserID)
	if err != nil {
		switch {
		case errors.Is(err, cartdomain.ErrEmptyCart):
			return s.transport.SendText(ctx, msg.UserID, "Your cart is empty!")
		case errors.Is(err, checkoutdomain.ErrPaymentBackend):
			s.log.Error("checkout failed", "user_id", msg.UserID, "err", err)
			return s.transport.SendText(ctx, msg.UserID,
				"Sorry, there was an error generating the payment QR code. Please try again.")
		default:
			return err
		}
	}

	caption := fmt.Sprintf(
		"Payment QR Code for $%s\nOrder ID: %s\n\nScan this QR code with your Bakong-enabled banking app to complete the payment.",
		order.Total.StringFixed(2), order.ID,
	)
	if err := s.transport.SendImage(ctx, msg.UserID, Image{Bytes: qrPNG}, caption); err != nil {
		return fmt.Errorf("send qr image: %w", err)
	}

	if _, err := s.settlements.Watch(ctx, order); err != nil {
		return fmt.Errorf("spawn watcher: %w", err)
	}
	return nil
}

func (s *Shop) categoryRows() [][]string {
	rows := make([][]string, 0)
	for _, c := range s.catalog.Categories() {
		rows = append(rows, []string{c.Name})
	}
	return rows
}

func productCaption(p catalogdomain.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s\n", p.ID, p.Name)
	fmt.Fprintf(&b, "💰 Price: $%s\n", p.Price.StringFixed(2))
	fmt.Fprintf(&b, "📝 %s\n\n", p.Description)
	fmt.Fprintf(&b, "To add to cart: /add %d [quantity]", p.ID)
	return b.String()
}
