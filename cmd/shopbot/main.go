package main

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/nochphanet/khqr-shopbot/internal/bot"
	"github.com/nochphanet/khqr-shopbot/internal/bot/infrastructure/telegram"
	cartapp "github.com/nochphanet/khqr-shopbot/internal/cart/application"
	catalogapp "github.com/nochphanet/khqr-shopbot/internal/catalog/application"
	"github.com/nochphanet/khqr-shopbot/internal/catalog/infrastructure/staticdata"
	checkoutapp "github.com/nochphanet/khqr-shopbot/internal/checkout/application"
	"github.com/nochphanet/khqr-shopbot/internal/checkout/infrastructure/qrencode"
	"github.com/nochphanet/khqr-shopbot/internal/config"
	"github.com/nochphanet/khqr-shopbot/internal/payment/bakong"
	"github.com/nochphanet/khqr-shopbot/internal/payment/khqr"
	"github.com/nochphanet/khqr-shopbot/internal/settlement"
	"github.com/nochphanet/khqr-shopbot/pkg/logging"
	"github.com/nochphanet/khqr-shopbot/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	categories, products, err := staticdata.Load()
	if err != nil {
		log.Error("catalog load failed", "err", err)
		os.Exit(1)
	}
	catalog := catalogapp.NewService(categories, products)
	carts := cartapp.NewLedger(catalog)

	authority := bakong.NewClient(log, cfg.BakongBaseURL, cfg.BakongToken, khqr.Merchant{
		AccountID: cfg.Merchant.AccountID,
		Name:      cfg.Merchant.Name,
		City:      cfg.Merchant.City,
		Mobile:    cfg.Merchant.Mobile,
		Label:     cfg.Merchant.Label,
	})
	checkout := checkoutapp.NewService(log, carts, authority, qrencode.New())

	transport, err := telegram.New(log, cfg.TelegramToken)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	settlements := settlement.NewRegistry(log, authority, transport, carts, settlement.Config{
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
	})

	shop := bot.NewShop(log, catalog, carts, checkout, settlements, transport)
	shop.Register()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return transport.Run(ctx)
	})

	log.Info("clothing shop bot is running")
	if err := g.Wait(); err != nil {
		log.Error("bot stopped with error", "err", err)
	}

	// Poller is down; wait for in-flight settlement watchers to observe
	// cancellation so no background polling outlives the process.
	settlements.Close()
	log.Info("shutdown complete")
}
