package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

func (b *Bot) privateCommandReceived(ctx context.Context, message *tgbotapi.Message) {
	cmd := message.Command()
	args := strings.TrimSpace(message.CommandArguments())
	name := utils.FormatTgUser(message.From)

	user := b.getOrCreateUser(message.From)
	log.Info("private command received", "command", cmd, "args", args, "user", name)

	switch cmd {
	case "start":
		msg := tgbotapi.NewMessage(user.ID, helpMessage)
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, _ = b.sender.Send(msg)
		b.mainMenu(user)
	case "wallet":
		if !common.IsHexAddress(args) {
			b.sendMessage(user.ID, "⛔️ Invalid address. Usage: `/wallet 0x...`")
			return
		}
		address := common.HexToAddress(args)
		b.linkWallet(user, address)
		b.sendMessage(user.ID, fmt.Sprintf("✅ Wallet linked: `%s`", utils.ShortenAddress(address.Hex())))
	case "info":
		_, _ = b.sendGameInfo(ctx, user)
	}
}
