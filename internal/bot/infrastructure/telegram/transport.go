// Package telegram implements the bot.Transport port on top of telebot's
// long poller.
package telegram

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/nochphanet/khqr-shopbot/internal/bot"
)

type Transport struct {
	log *slog.Logger
	b   *tele.Bot

	mu           sync.RWMutex
	textHandlers map[string]bot.Handler

	// runCtx is the process-scoped context handlers run under, so work
	// spawned from a handler (settlement watchers) outlives the message
	// and still stops on shutdown.
	runCtx context.Context
}

func New(log *slog.Logger, token string) (*Transport, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}

	t := &Transport{
		log:          log,
		b:            b,
		textHandlers: make(map[string]bot.Handler),
		runCtx:       context.Background(),
	}
	b.Handle(tele.OnText, t.dispatchText)
	return t, nil
}

// Run starts the long poller and blocks until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	t.mu.Lock()
	t.runCtx = ctx
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.b.Stop()
	}()

	t.log.Info("telegram poller started", "bot", t.b.Me.Username)
	t.b.Start()
	return nil
}

func (t *Transport) SendText(ctx context.Context, userID int64, text string) error {
	_, err := t.b.Send(tele.ChatID(userID), text)
	return err
}

func (t *Transport) SendMenu(ctx context.Context, userID int64, text string, rows [][]string) error {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		btns := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			btns = append(btns, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(btns...))
	}
	markup.Reply(keyboard...)

	_, err := t.b.Send(tele.ChatID(userID), text, markup)
	return err
}

func (t *Transport) SendImage(ctx context.Context, userID int64, img bot.Image, caption string) error {
	photo := &tele.Photo{Caption: caption}
	if len(img.Bytes) > 0 {
		photo.File = tele.FromReader(bytes.NewReader(img.Bytes))
	} else {
		photo.File = tele.FromURL(img.URL)
	}
	_, err := t.b.Send(tele.ChatID(userID), photo)
	return err
}

func (t *Transport) OnCommand(name string, h bot.Handler) {
	t.b.Handle("/"+name, func(c tele.Context) error {
		return h(t.handlerCtx(), messageFrom(c))
	})
}

func (t *Transport) OnText(patterns []string, h bot.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range patterns {
		t.textHandlers[p] = h
	}
}

func (t *Transport) dispatchText(c tele.Context) error {
	t.mu.RLock()
	h, ok := t.textHandlers[c.Text()]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	return h(t.handlerCtx(), messageFrom(c))
}

func (t *Transport) handlerCtx() context.Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.runCtx
}

func messageFrom(c tele.Context) bot.Message {
	return bot.Message{
		UserID: c.Sender().ID,
		Text:   c.Text(),
		Args:   c.Args(),
	}
}
