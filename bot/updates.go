package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// HandleTelegramUpdate dispatches one update received from Telegram
func (b *Bot) HandleTelegramUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		if update.Message.Chat.IsPrivate() {
			if update.Message.IsCommand() {
				b.privateCommandReceived(ctx, update.Message)
				return
			}
			b.privateMessageReceived(ctx, update.Message)
			return
		}

		if update.Message.Chat.UserName == b.cfg.Bot.Group {
			b.discoverGroup(update.Message.Chat.ID)
		}
		if update.Message.IsCommand() {
			_, _ = b.sender.Send(tgbotapi.DeleteMessageConfig{ChatID: update.Message.Chat.ID, MessageID: update.Message.MessageID})
		}
		return
	}

	if update.CallbackQuery != nil {
		b.callbackQueryReceived(ctx, update.CallbackQuery)
	}
}

func (b *Bot) discoverGroup(chatID int64) {
	b.mutGroup.Lock()
	defer b.mutGroup.Unlock()

	if b.cfg.Bot.GroupID != 0 {
		return
	}

	b.cfg.Bot.GroupID = chatID
	log.Info("group discovered", "group", b.cfg.Bot.Group, "id", chatID)
	err := b.saveFunc(b.cfg)
	if err != nil {
		log.Warn("can not save config", "error", err)
	}
}
