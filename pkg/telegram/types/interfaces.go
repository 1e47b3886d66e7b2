package types

import (
	"context"
	"time"
)

// Client is the Bot API surface the relay consumes: one inbound capability
// (GetUpdates) and the outbound send calls.
type Client interface {
	GetMe(ctx context.Context) (*User, error)
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) (*Message, error)
	CopyMessage(ctx context.Context, chatID, fromChatID int64, messageID int) (*MessageID, error)
	SendMediaGroup(ctx context.Context, chatID int64, media []InputMedia) ([]Message, error)
}

// ClientConfig configures the Bot API client
type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	PollTimeoutSec int
	UpdatesLimit   int
}
