package bot

import (
	"context"

	"github.com/DrDelphi/LuckyOneBot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

func (b *Bot) callbackQueryReceived(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	cb := callback.Data
	_, _ = b.sender.AnswerCallbackQuery(tgbotapi.NewCallback(callback.ID, ""))
	_ = b.getOrCreateUser(callback.From)
	name := utils.FormatTgUser(callback.From)
	log.Info("callback received", "callback", cb, "user", name)

	if cb == callbackRefresh && callback.Message != nil {
		b.refreshGameInfo(ctx, callback.Message)
		return
	}
}

func (b *Bot) refreshGameInfo(ctx context.Context, message *tgbotapi.Message) {
	b.mutUsers.RLock()
	user := b.users[message.Chat.ID]
	b.mutUsers.RUnlock()

	text := b.gameInfo(b.snapshotFor(ctx, user), user)
	keyboard := refreshKeyboard()
	msg := tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = &keyboard
	_, err := b.sender.Send(msg)
	if err != nil {
		log.Debug("can not refresh game info", "error", err)
	}
}
