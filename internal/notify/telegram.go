package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
)

// TelegramSink delivers through a Telegram bot. Telegram throttles bots
// aggressively, so sends go through a shared rate limiter.
type TelegramSink struct {
	baseSink
	bot     *bot.Bot
	chatID  int64
	limiter *rate.Limiter
}

func NewTelegramSink(template, botToken string, chatID int64) (*TelegramSink, error) {
	b, err := bot.New(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSink{
		baseSink: baseSink{name: "telegram", mode: ModeBlocking, template: template},
		bot:      b,
		chatID:   chatID,
		limiter:  rate.NewLimiter(rate.Limit(1), 3),
	}, nil
}

func (s *TelegramSink) Deliver(ctx context.Context, message string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: s.chatID,
		Text:   message,
	})
	return err
}
