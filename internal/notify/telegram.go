package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
)

type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegram returns nil, nil when token or chat id is missing.
// Extra options (e.g. bot.WithServerURL) are passed to the client.
func NewTelegram(token string, chatID int64, opts ...bot.Option) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	if t == nil || t.bot == nil {
		return errors.New("telegram disabled")
	}
	if _, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   title + "\n" + text,
	}); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
