package bot

import "context"

// Message is an inbound chat message, already stripped of platform framing.
type Message struct {
	UserID int64
	Text   string
	Args   []string // whitespace-split arguments after a command
}

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg Message) error

// Image is either raw bytes or a URL; exactly one is set.
type Image struct {
	Bytes []byte
	URL   string
}

// Transport is the narrow chat-platform boundary. The shop never does
// platform-specific framing; it only calls these.
type Transport interface {
	SendText(ctx context.Context, userID int64, text string) error
	// SendMenu sends text with a reply keyboard; rows are button labels.
	SendMenu(ctx context.Context, userID int64, text string, rows [][]string) error
	SendImage(ctx context.Context, userID int64, img Image, caption string) error
	OnCommand(name string, h Handler)
	// OnText routes messages whose full text equals one of the patterns.
	OnText(patterns []string, h Handler)
}
