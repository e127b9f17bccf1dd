// Package alerts posts operational notices (rejected webhooks, failed
// referral awards) to an admin Telegram chat. Delivery is best-effort.
package alerts

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewNotifier(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

// Notify sends text to the admin chat. A nil notifier is a no-op so callers
// do not have to guard for a disabled channel.
func (n *Notifier) Notify(_ context.Context, text string) {
	if n == nil {
		return
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.log.Error("alert send failed", "err", err)
	}
}
