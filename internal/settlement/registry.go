package settlement

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nochphanet/khqr-shopbot/internal/checkout/domain"
)

var ErrAlreadyWatching = errors.New("settlement: order already has a watcher")

// Registry spawns and tracks one watcher per order. Cancelling the context
// passed to Watch stops that watcher; Close blocks until every watcher
// goroutine has drained, so shutdown leaves no background polling behind.
type Registry struct {
	log      *slog.Logger
	checker  StatusChecker
	notifier Notifier
	carts    CartClearer
	cfg      Config

	mu       sync.Mutex
	watchers map[string]*Watcher
	wg       sync.WaitGroup
}

func NewRegistry(log *slog.Logger, checker StatusChecker, notifier Notifier, carts CartClearer, cfg Config) *Registry {
	return &Registry{
		log:      log,
		checker:  checker,
		notifier: notifier,
		carts:    carts,
		cfg:      cfg,
		watchers: make(map[string]*Watcher),
	}
}

// Watch starts the watcher for an order. Order IDs are unique per
// checkout, so a second Watch for the same ID is a caller bug.
func (r *Registry) Watch(ctx context.Context, order domain.Order) (*Watcher, error) {
	r.mu.Lock()
	if _, ok := r.watchers[order.ID]; ok {
		r.mu.Unlock()
		return nil, ErrAlreadyWatching
	}
	w := newWatcher(r.log, order, r.checker, r.notifier, r.carts, r.cfg)
	r.watchers[order.ID] = w
	r.mu.Unlock()

	r.log.Info("watcher started",
		"order_id", order.ID,
		"poll_interval", r.cfg.PollInterval,
		"max_attempts", r.cfg.MaxAttempts,
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		w.Run(ctx)
		r.mu.Lock()
		delete(r.watchers, order.ID)
		r.mu.Unlock()
	}()
	return w, nil
}

// Live reports how many watchers are still polling.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Close waits for all watcher goroutines to finish. Callers cancel the
// watch context first; Close only drains.
func (r *Registry) Close() {
	r.wg.Wait()
}
