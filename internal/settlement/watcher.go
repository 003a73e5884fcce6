// Package settlement resolves a pending order's payment state by polling
// the payment authority on a fixed interval, bounded by a maximum number
// of determinate attempts. A watcher leaves PENDING at most once; every
// side effect is gated behind a single atomic compare-and-swap so a late
// success can never race an expiry into double-firing.
package settlement

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nochphanet/khqr-shopbot/internal/checkout/domain"
)

// Status is a determinate answer from the payment authority.
type Status struct {
	Settled bool
	Raw     []byte
}

type StatusChecker interface {
	CheckStatus(ctx context.Context, txRef string) (Status, error)
}

type Notifier interface {
	SendText(ctx context.Context, userID int64, text string) error
}

type CartClearer interface {
	Clear(userID int64)
}

type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
}

const (
	statePending int32 = iota
	stateSucceeded
	stateExpired
	stateErrored
)

type Watcher struct {
	log      *slog.Logger
	order    domain.Order
	checker  StatusChecker
	notifier Notifier
	carts    CartClearer
	cfg      Config

	state atomic.Int32
}

func newWatcher(log *slog.Logger, order domain.Order, checker StatusChecker, notifier Notifier, carts CartClearer, cfg Config) *Watcher {
	return &Watcher{
		log:      log.With("order_id", order.ID, "tx_ref", order.TxRef),
		order:    order,
		checker:  checker,
		notifier: notifier,
		carts:    carts,
		cfg:      cfg,
	}
}

// State reports the order's current settlement state.
func (w *Watcher) State() domain.SettlementState {
	switch w.state.Load() {
	case stateSucceeded:
		return domain.StateSucceeded
	case stateExpired:
		return domain.StateExpired
	case stateErrored:
		return domain.StateErrored
	default:
		return domain.StatePending
	}
}

// Run polls until the order settles, the attempt budget is spent, or ctx
// is cancelled. A poll-call failure does not consume an attempt: only
// cycles with a determinate "still pending" answer count toward expiry,
// so transient network blips cannot expire an order early.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.cfg.PollInterval)
	defer t.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher cancelled", "state", w.State())
			return
		case <-t.C:
			st, err := w.checker.CheckStatus(ctx, w.order.TxRef)
			if err != nil {
				w.log.Warn("status check failed", "err", err)
				w.notify(ctx, "❌ We could not verify your payment just now. Still checking, hang tight.")
				continue
			}
			if st.Settled {
				w.succeed(ctx)
				return
			}

			attempts++
			if attempts >= w.cfg.MaxAttempts {
				w.expire(ctx)
				return
			}
		}
	}
}

func (w *Watcher) succeed(ctx context.Context) {
	if !w.state.CompareAndSwap(statePending, stateSucceeded) {
		w.log.Warn("late success ignored", "state", w.State())
		return
	}
	w.carts.Clear(w.order.UserID)
	w.notify(ctx, "✅ Payment of $"+w.order.Total.StringFixed(2)+" completed successfully! Thank you for your purchase.")
	w.log.Info("order settled", "total", w.order.Total.StringFixed(2))
}

func (w *Watcher) expire(ctx context.Context) {
	if !w.state.CompareAndSwap(statePending, stateExpired) {
		return
	}
	// The cart is deliberately kept so the user can retry /checkout
	// without rebuilding it.
	w.notify(ctx, "⏳ Payment time expired. Please try again.")
	w.log.Info("order expired", "attempts", w.cfg.MaxAttempts)
}

func (w *Watcher) notify(ctx context.Context, text string) {
	if err := w.notifier.SendText(ctx, w.order.UserID, text); err != nil {
		w.log.Error("notify failed", "err", err)
	}
}
