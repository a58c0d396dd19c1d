package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// CommandHandler is called when a user command is received. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling long-polls for commands and replies in the configured chat.
// Messages from any other chat are dropped. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			log.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				log.Info("telegram update channel closed")
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			if update.Message.Chat == nil || update.Message.Chat.ID != t.chatID {
				var from int64
				if update.Message.Chat != nil {
					from = update.Message.Chat.ID
				}
				log.WithField("chat_id", from).Warnf("ignoring command from unknown chat: %s", text)
				continue
			}
			log.Infof("received command: %s", text)

			reply := handler(ctx, text)
			if reply == "" {
				continue
			}
			if err := t.Send(reply); err != nil {
				log.Errorf("send reply: %v", err)
			}
		}
	}
}
