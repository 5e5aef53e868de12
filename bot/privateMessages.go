package bot

import (
	"context"

	"github.com/DrDelphi/LuckyOneBot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

func (b *Bot) privateMessageReceived(ctx context.Context, message *tgbotapi.Message) {
	user := b.getOrCreateUser(message.From)
	name := utils.FormatTgUser(message.From)
	log.Info("private message received", "message", message.Text, "user", name)

	switch message.Text {
	case menuAbout:
		msg := tgbotapi.NewMessage(user.ID, aboutMessage)
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, _ = b.sender.Send(msg)
	case menuMainHelp:
		msg := tgbotapi.NewMessage(user.ID, helpMessage)
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, err := b.sender.Send(msg)
		if err != nil {
			log.Error("unable to send message", "message", helpMessage, "error", err)
		}
	case menuGameInfo:
		_, err := b.sendGameInfo(ctx, user)
		if err != nil {
			log.Warn("can not send game info", "user", name, "error", err)
		}
	case menuMyTickets:
		b.sendMyTickets(ctx, user)
	case menuHistory:
		b.sendHistory(ctx, user)
	case menuBalance:
		b.sendBalance(ctx, user)
	}
}
