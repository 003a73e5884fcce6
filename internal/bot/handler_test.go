package bot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nochphanet/khqr-shopbot/internal/bot"
	cartapp "github.com/nochphanet/khqr-shopbot/internal/cart/application"
	catalogapp "github.com/nochphanet/khqr-shopbot/internal/catalog/application"
	catalogdomain "github.com/nochphanet/khqr-shopbot/internal/catalog/domain"
	checkoutapp "github.com/nochphanet/khqr-shopbot/internal/checkout/application"
	"github.com/nochphanet/khqr-shopbot/internal/settlement"
)

// fakeTransport records outbound traffic and captures registered handlers
// so tests can feed messages straight into the shop.
type fakeTransport struct {
	mu       sync.Mutex
	texts    []string
	captions []string
	images   [][]byte
	menus    []string
	failMenu bool

	commands map[string]bot.Handler
	patterns map[string]bot.Handler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		commands: make(map[string]bot.Handler),
		patterns: make(map[string]bot.Handler),
	}
}

func (f *fakeTransport) SendText(ctx context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeTransport) SendMenu(ctx context.Context, userID int64, text string, rows [][]string) error {
	if f.failMenu {
		return errors.New("menu rejected")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menus = append(f.menus, text)
	return nil
}

func (f *fakeTransport) SendImage(ctx context.Context, userID int64, img bot.Image, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img.Bytes)
	f.captions = append(f.captions, caption)
	return nil
}

func (f *fakeTransport) OnCommand(name string, h bot.Handler) { f.commands[name] = h }

func (f *fakeTransport) OnText(patterns []string, h bot.Handler) {
	for _, p := range patterns {
		f.patterns[p] = h
	}
}

func (f *fakeTransport) command(t *testing.T, name string, msg bot.Message) {
	t.Helper()
	h, ok := f.commands[name]
	if !ok {
		t.Fatalf("command %q not registered", name)
	}
	if err := h(context.Background(), msg); err != nil {
		t.Fatalf("command %q returned error: %v", name, err)
	}
}

func (f *fakeTransport) text(t *testing.T, userID int64, s string) {
	t.Helper()
	h, ok := f.patterns[s]
	if !ok {
		t.Fatalf("no handler for text %q", s)
	}
	if err := h(context.Background(), bot.Message{UserID: userID, Text: s}); err != nil {
		t.Fatalf("text %q returned error: %v", s, err)
	}
}

func (f *fakeTransport) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no text was sent")
	}
	return f.texts[len(f.texts)-1]
}

type fakeAuthority struct{ err error }

func (f fakeAuthority) GenerateDescriptor(ctx context.Context, amount decimal.Decimal) (checkoutapp.Descriptor, error) {
	if f.err != nil {
		return checkoutapp.Descriptor{}, f.err
	}
	return checkoutapp.Descriptor{Payload: "payload", TxRef: "ref"}, nil
}

type fakeEncoder struct{}

func (fakeEncoder) Encode(payload string) ([]byte, error) { return []byte("png"), nil }

type pendingChecker struct{}

func (pendingChecker) CheckStatus(ctx context.Context, txRef string) (settlement.Status, error) {
	return settlement.Status{Settled: false}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newShop(t *testing.T, transport *fakeTransport, authority fakeAuthority) (*bot.Shop, *cartapp.Ledger, *settlement.Registry) {
	t.Helper()
	catalog := catalogapp.NewService(
		[]catalogdomain.Category{{ID: 1, Name: "T-Shirts"}},
		map[string][]catalogdomain.Product{
			"T-Shirts": {
				{ID: 1, Name: "Classic White Tee", Price: decimal.New(1, -2), ImageURL: "https://example.com/tee.png"},
			},
		},
	)
	carts := cartapp.NewLedger(catalog)
	checkout := checkoutapp.NewService(discard(), carts, authority, fakeEncoder{})
	registry := settlement.NewRegistry(discard(), pendingChecker{}, transport, carts, settlement.Config{
		PollInterval: time.Minute,
		MaxAttempts:  30,
	})
	shop := bot.NewShop(discard(), catalog, carts, checkout, registry, transport)
	shop.Register()
	return shop, carts, registry
}

func TestStartSendsCategoryMenu(t *testing.T) {
	tr := newFakeTransport()
	newShop(t, tr, fakeAuthority{})

	tr.command(t, "start", bot.Message{UserID: 7, Text: "/start"})
	if len(tr.menus) != 1 || !strings.Contains(tr.menus[0], "Welcome") {
		t.Fatalf("expected welcome menu, got %v", tr.menus)
	}
}

func TestAddCommand(t *testing.T) {
	tr := newFakeTransport()
	_, carts, _ := newShop(t, tr, fakeAuthority{})

	t.Run("missing id", func(t *testing.T) {
		tr.command(t, "add", bot.Message{UserID: 7, Text: "/add"})
		if got := tr.lastText(t); !strings.Contains(got, "valid product ID") {
			t.Fatalf("unexpected reply %q", got)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 99", Args: []string{"99"}})
		if got := tr.lastText(t); got != "Product not found!" {
			t.Fatalf("unexpected reply %q", got)
		}
	})

	t.Run("bad quantity", func(t *testing.T) {
		tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1 0", Args: []string{"1", "0"}})
		if got := tr.lastText(t); !strings.Contains(got, "at least 1") {
			t.Fatalf("unexpected reply %q", got)
		}
	})

	t.Run("default quantity is one", func(t *testing.T) {
		tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1", Args: []string{"1"}})
		if got := tr.lastText(t); !strings.Contains(got, "Added 1x Classic White Tee") {
			t.Fatalf("unexpected reply %q", got)
		}
	})

	t.Run("explicit quantity merges", func(t *testing.T) {
		tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1 4", Args: []string{"1", "4"}})
		lines := carts.View(7)
		if len(lines) != 1 || lines[0].Quantity != 5 {
			t.Fatalf("expected merged quantity 5, got %+v", lines)
		}
	})
}

func TestViewCart(t *testing.T) {
	tr := newFakeTransport()
	newShop(t, tr, fakeAuthority{})

	tr.text(t, 7, "View Cart 🛒")
	if got := tr.lastText(t); got != "Your cart is empty!" {
		t.Fatalf("unexpected reply %q", got)
	}

	tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1 3", Args: []string{"1", "3"}})
	tr.text(t, 7, "View Cart 🛒")

	if len(tr.captions) != 1 || !strings.Contains(tr.captions[0], "Quantity: 3") {
		t.Fatalf("expected a cart line caption, got %v", tr.captions)
	}
	if got := tr.lastText(t); !strings.Contains(got, "Total: $0.03") {
		t.Fatalf("expected total summary, got %q", got)
	}
}

func TestClearCommand(t *testing.T) {
	tr := newFakeTransport()
	_, carts, _ := newShop(t, tr, fakeAuthority{})

	tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1 2", Args: []string{"1", "2"}})
	tr.command(t, "clear", bot.Message{UserID: 7, Text: "/clear"})

	if got := tr.lastText(t); got != "Cart cleared!" {
		t.Fatalf("unexpected reply %q", got)
	}
	if lines := carts.View(7); len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", lines)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	tr := newFakeTransport()
	newShop(t, tr, fakeAuthority{})

	tr.command(t, "checkout", bot.Message{UserID: 7, Text: "/checkout"})
	if got := tr.lastText(t); got != "Your cart is empty!" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCheckoutBackendFailureKeepsCart(t *testing.T) {
	tr := newFakeTransport()
	_, carts, _ := newShop(t, tr, fakeAuthority{err: errors.New("backend down")})

	tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1 2", Args: []string{"1", "2"}})
	tr.command(t, "checkout", bot.Message{UserID: 7, Text: "/checkout"})

	if got := tr.lastText(t); !strings.Contains(got, "error generating the payment QR code") {
		t.Fatalf("unexpected reply %q", got)
	}
	if lines := carts.View(7); len(lines) != 1 {
		t.Fatalf("cart must survive a failed checkout, got %+v", lines)
	}
}

func TestCheckoutSendsQRAndSpawnsWatcher(t *testing.T) {
	tr := newFakeTransport()
	_, _, registry := newShop(t, tr, fakeAuthority{})

	tr.command(t, "add", bot.Message{UserID: 7, Text: "/add 1 3", Args: []string{"1", "3"}})
	tr.command(t, "checkout", bot.Message{UserID: 7, Text: "/checkout"})

	if len(tr.images) == 0 || string(tr.images[len(tr.images)-1]) != "png" {
		t.Fatal("expected the QR image to be sent")
	}
	caption := tr.captions[len(tr.captions)-1]
	if !strings.Contains(caption, "$0.03") || !strings.Contains(caption, "Order ID: ORDER") {
		t.Fatalf("unexpected caption %q", caption)
	}
	if registry.Live() != 1 {
		t.Fatalf("expected one live watcher, got %d", registry.Live())
	}
}

func TestGuardAnswersWithApology(t *testing.T) {
	tr := newFakeTransport()
	tr.failMenu = true
	newShop(t, tr, fakeAuthority{})

	tr.command(t, "start", bot.Message{UserID: 7, Text: "/start"})
	if got := tr.lastText(t); got != "An error occurred. Please try again later." {
		t.Fatalf("expected apology, got %q", got)
	}
}
