package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/DrDelphi/LuckyOneBot/config"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ElrondNetwork/elrond-go-core/core/check"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

var log = logger.GetOrCreate("bot")

// ArgsBot holds the arguments needed to create a Bot
type ArgsBot struct {
	Sender  TelegramSender
	Updates <-chan tgbotapi.Update
	Config  *data.AppConfig
	Source  SnapshotSource
	History HistorySource
	Balance BalanceReader
}

// Bot - announces the lottery rounds to a Telegram group and answers private requests
type Bot struct {
	sender   TelegramSender
	updates  <-chan tgbotapi.Update
	cfg      *data.AppConfig
	source   SnapshotSource
	history  HistorySource
	balance  BalanceReader
	display  data.Display
	saveFunc func(cfg *data.AppConfig) error

	mutUsers sync.RWMutex
	users    map[int64]*data.User
	tgUsers  map[int64]*data.Telegram

	mutGroup sync.RWMutex

	lastRound       uint64
	lastTickets     uint64
	lastInfoMessage int
	lastError       string

	wg sync.WaitGroup
}

// NewTelegramAPI - connects to the Telegram bot API
func NewTelegramAPI(token string) (*tgbotapi.BotAPI, error) {
	tgBot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Error("can not create telegram bot", "error", err)
		return nil, err
	}

	return tgBot, nil
}

// NewBot - creates a new Bot object
func NewBot(args ArgsBot) (*Bot, error) {
	if args.Sender == nil {
		return nil, ErrNilSender
	}
	if args.Config == nil {
		return nil, ErrNilConfig
	}
	if check.IfNil(args.Source) {
		return nil, ErrNilSource
	}
	if check.IfNil(args.History) {
		return nil, ErrNilHistory
	}
	if check.IfNil(args.Balance) {
		return nil, ErrNilBalance
	}

	display := args.Config.Display
	if display.Currency == "" {
		display.Currency = utils.DefaultCurrency
	}

	telegramBot := &Bot{
		sender:   args.Sender,
		updates:  args.Updates,
		cfg:      args.Config,
		source:   args.Source,
		history:  args.History,
		balance:  args.Balance,
		display:  display,
		saveFunc: config.Save,
		users:    make(map[int64]*data.User),
		tgUsers:  make(map[int64]*data.Telegram),
	}

	if args.Config.Bot.Group != "" {
		helpMessage = strings.ReplaceAll(helpMessage, "@LuckyOne", "@"+args.Config.Bot.Group)
	}

	return telegramBot, nil
}

// StartTasks - starts bot's tasks. They stop when the context is done.
func (b *Bot) StartTasks(ctx context.Context) {
	snapshots, unsubscribe := b.source.Subscribe()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-snapshots:
				if !ok {
					return
				}
				b.HandleUpdate(update)
			}
		}
	}()

	if b.updates == nil {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-b.updates:
				if !ok {
					return
				}
				b.HandleTelegramUpdate(ctx, update)
			}
		}
	}()
}

// Wait blocks until the tasks started by StartTasks returned
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate posts the round info when a new round shows up, keeps it current while tickets
// are bought and announces the contract events
func (b *Bot) HandleUpdate(update data.Update) {
	if update.Event != nil {
		b.announceEvent(update.Event)
		return
	}

	if update.Err != nil {
		text := "Unable to get lottery state. Error: " + update.Err.Error()
		if text != b.lastError {
			b.reportError(text)
			b.lastError = text
		}
		return
	}
	b.lastError = ""

	snapshot := update.Snapshot
	if snapshot == nil || snapshot.Round == nil {
		return
	}

	round := snapshot.Round
	if round.ID != b.lastRound {
		msg, err := b.sendToGroup(b.gameInfo(snapshot, nil))
		if err == nil {
			b.lastInfoMessage = msg.MessageID
		}
		b.lastRound = round.ID
		b.lastTickets = round.TotalTickets
		return
	}

	if round.TotalTickets != b.lastTickets && b.lastInfoMessage != 0 {
		msg := tgbotapi.NewEditMessageText(b.groupID(), b.lastInfoMessage, b.gameInfo(snapshot, nil))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true
		_, err := b.sender.Send(msg)
		if err != nil {
			log.Warn("can not edit game info message", "error", err)
		}
		b.lastTickets = round.TotalTickets
	}
}

func (b *Bot) announceEvent(event *data.Event) {
	switch payload := event.Payload.(type) {
	case *data.LotteryEnded:
		b.sendToGroup(fmt.Sprintf("🏁 `Round #%v ended` - selecting the winner ⌛️", payload.RoundID))
	case *data.WinnerSelected:
		name := b.winnerName(payload.Winner)
		b.sendToGroup(fmt.Sprintf("🏆 `Round #%v winner:` %s\n`Prize:` %s 🥳",
			payload.RoundID, name, utils.FormatAmount(payload.Prize, b.display.Currency)))

		user := b.getUserByAddress(payload.Winner)
		if user != nil {
			b.sendMessage(user.ID, fmt.Sprintf("🤑 You won round #%v! Claim your prize of %s",
				payload.RoundID, utils.FormatAmount(payload.Prize, b.display.Currency)))
		}
	case *data.PrizeClaimed:
		b.sendToGroup(fmt.Sprintf("🎁 `Round #%v prize claimed` by %s: %s - [tx](%s)",
			payload.RoundID, b.winnerName(payload.Winner), utils.FormatAmount(payload.Amount, b.display.Currency),
			b.explorerLink("tx", event.TxHash.Hex())))
	case *data.LotteryRestarted:
		b.sendToGroup(fmt.Sprintf("🔄 `Round #%v` had no tickets and was restarted as round #%v",
			payload.OldRoundID, payload.NewRoundID))
	default:
		log.Trace("event not announced", "name", event.Name)
	}
}

func (b *Bot) winnerName(address common.Address) string {
	user := b.getUserByAddress(address)
	if user != nil {
		b.mutUsers.RLock()
		tgUser := b.tgUsers[user.ID]
		b.mutUsers.RUnlock()
		if tgUser != nil {
			return strings.ReplaceAll(utils.FormatDbTgUser(tgUser), "_", "\\_")
		}
	}

	return fmt.Sprintf("[%s](%s)", utils.ShortenAddress(address.Hex()), b.explorerLink("address", address.Hex()))
}

func (b *Bot) explorerLink(kind string, value string) string {
	return strings.TrimRight(b.display.Explorer, "/") + "/" + kind + "/" + value
}

func (b *Bot) reportError(text string) {
	msg := tgbotapi.NewMessage(b.cfg.Bot.Owner, "⛔️ "+text)
	_, err := b.sender.Send(msg)
	if err != nil {
		log.Warn("can not report error to owner", "message", text, "error", err)
	}
}

func (b *Bot) groupID() int64 {
	b.mutGroup.RLock()
	defer b.mutGroup.RUnlock()

	return b.cfg.Bot.GroupID
}

func (b *Bot) sendToGroup(text string) (tgbotapi.Message, error) {
	groupID := b.groupID()
	if groupID == 0 {
		log.Debug("group message skipped", "message", text)
		return tgbotapi.Message{}, errNoGroup
	}

	msg := tgbotapi.NewMessage(groupID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	res, err := b.sender.Send(msg)
	if err != nil {
		log.Warn("error sending message to group", "message", text, "error", err)
	}

	return res, err
}

func (b *Bot) sendMessage(userID int64, text string) (tgbotapi.Message, error) {
	b.mutUsers.RLock()
	user, ok := b.users[userID]
	tgUser := b.tgUsers[userID]
	b.mutUsers.RUnlock()
	if user == nil || !ok {
		return tgbotapi.Message{}, errUserNotFound
	}

	name := ""
	if tgUser != nil {
		name = fmt.Sprintf("@%s (%s %s)", tgUser.UserName, tgUser.FirstName, tgUser.LastName)
		log.Info("sent message", "user", name, "message", text)
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	res, err := b.sender.Send(msg)
	if err != nil {
		log.Warn("error sending message", "user", name, "message", text, "error", err.Error())
	}

	return res, err
}

func (b *Bot) gameInfo(snapshot *data.Snapshot, user *data.User) string {
	if snapshot == nil || snapshot.Round == nil {
		return "⌛️ Lottery state not available yet"
	}

	round := snapshot.Round
	text := "`Game Info`\n\n"
	text += fmt.Sprintf("`Game round:` #%v\n", round.ID)
	text += fmt.Sprintf("`Ticket price:` %s\n", utils.FormatAmount(snapshot.TicketPrice, b.display.Currency))
	text += fmt.Sprintf("`Tickets bought:` %s\n", utils.FormatNumber(round.TotalTickets))
	text += fmt.Sprintf("`Players:` %v\n", snapshot.TotalPlayers)
	text += fmt.Sprintf("`Prize pool:` %s\n", utils.FormatPrizePool(round.PrizePool, b.display.Currency))
	text += fmt.Sprintf("`Status:` %s\n", utils.StateBadge(round.State))
	if round.State == utils.StateOpen {
		text += fmt.Sprintf("`Deadline:` %s\n", utils.FormatTime(round.EndTime))
		remaining := utils.ComputeTimeRemaining(round.EndTime, snapshot.FetchedAt)
		text += fmt.Sprintf("`Time remaining:` %s\n", utils.FormatTimeRemaining(remaining))
	}
	if round.HasWinner() {
		text += fmt.Sprintf("`Winner:` %s\n", b.winnerName(round.Winner))
	}
	if snapshot.Stale {
		text += "\n⚠️ _data may be outdated_\n"
	}

	if user != nil && user.HasWallet() && snapshot.Player == user.Wallet {
		switch snapshot.PlayerTickets {
		case 0:
			text += "\nYou have no tickets in this round"
		case 1:
			text += fmt.Sprintf("\nYou have `1` ticket (%s%% win chance)",
				utils.FormatWinChance(1, round.TotalTickets))
		default:
			text += fmt.Sprintf("\nYou have `%v` tickets (%s%% win chance)", snapshot.PlayerTickets,
				utils.FormatWinChance(snapshot.PlayerTickets, round.TotalTickets))
		}
		if utils.CanClaim(round, user.Wallet) {
			text += "\n🎉 You won this round, claim your prize!"
		}
	}

	return text
}

// snapshotFor returns the state seen by the user, refreshed for users with a linked wallet
func (b *Bot) snapshotFor(ctx context.Context, user *data.User) *data.Snapshot {
	if user == nil || !user.HasWallet() {
		return b.source.Current()
	}

	snapshot, err := b.source.RefreshPlayer(ctx, user.Wallet)
	if snapshot == nil {
		log.Debug("can not read player snapshot", "user", user.ID, "error", err)
		return b.source.Current()
	}

	return snapshot
}

func refreshKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", callbackRefresh),
	))
}

func (b *Bot) sendGameInfo(ctx context.Context, user *data.User) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(user.ID, b.gameInfo(b.snapshotFor(ctx, user), user))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = refreshKeyboard()

	return b.sender.Send(msg)
}

func (b *Bot) sendMyTickets(ctx context.Context, user *data.User) {
	if !user.HasWallet() {
		b.sendMessage(user.ID, "❕ Link your wallet first with `/wallet 0x...`")
		return
	}

	snapshot, err := b.source.RefreshPlayer(ctx, user.Wallet)
	if snapshot == nil || snapshot.Round == nil {
		b.sendMessage(user.ID, "❗️ Network error, please try again later")
		log.Warn("can not get player tickets", "user", user.ID, "error", err)
		return
	}

	if snapshot.PlayerTickets == 0 {
		b.sendMessage(user.ID, "🚫 You have no tickets in this round")
		return
	}

	b.sendMessage(user.ID, fmt.Sprintf("🎫 You have `%v` of `%v` tickets in round #%v\n`Win chance:` %s%%",
		snapshot.PlayerTickets, snapshot.Round.TotalTickets, snapshot.Round.ID,
		utils.FormatWinChance(snapshot.PlayerTickets, snapshot.Round.TotalTickets)))
}

func (b *Bot) sendHistory(ctx context.Context, user *data.User) {
	entries, err := b.history.GetHistory(ctx, b.cfg.History.Limit)
	if err != nil {
		b.reportError("can not get lottery history: " + err.Error())
		b.sendMessage(user.ID, "❗️ Network error, please try again later")
		return
	}

	if len(entries) == 0 {
		b.sendMessage(user.ID, "📜 No completed rounds yet")
		return
	}

	text := "`History`\n\n"
	for _, entry := range entries {
		claimed := "⌛️"
		if entry.PrizeClaimed {
			claimed = "✅"
		}
		text += fmt.Sprintf("`#%v` %s won %s (%v tickets) %s\n", entry.ID, b.winnerName(entry.Winner),
			utils.FormatAmount(entry.PrizePool, b.display.Currency), entry.TotalTickets, claimed)
	}
	b.sendMessage(user.ID, text)
}

func (b *Bot) sendBalance(ctx context.Context, user *data.User) {
	if !user.HasWallet() {
		b.sendMessage(user.ID, "❕ Link your wallet first with `/wallet 0x...`")
		return
	}

	balance, err := b.balance.GetBalance(ctx, user.Wallet)
	if err != nil {
		b.reportError("can not get wallet balance: " + err.Error())
		return
	}

	b.sendMessage(user.ID, fmt.Sprintf("`Wallet:` [%s](%s)\n`Balance:` %s",
		utils.ShortenAddress(user.Wallet.Hex()), b.explorerLink("address", user.Wallet.Hex()),
		utils.FormatAmount(balance, b.display.Currency)))
}

func (b *Bot) getOrCreateUser(tgUser *tgbotapi.User) *data.User {
	id := int64(tgUser.ID)

	b.mutUsers.Lock()
	defer b.mutUsers.Unlock()

	user, ok := b.users[id]
	if !ok {
		user = &data.User{ID: id}
		b.users[id] = user
	}
	b.tgUsers[id] = &data.Telegram{
		ID:        id,
		UserName:  tgUser.UserName,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
	}

	return user
}

func (b *Bot) linkWallet(user *data.User, address common.Address) {
	b.mutUsers.Lock()
	user.Wallet = address
	b.mutUsers.Unlock()
}

func (b *Bot) getUserByAddress(address common.Address) *data.User {
	if address == (common.Address{}) {
		return nil
	}

	b.mutUsers.RLock()
	defer b.mutUsers.RUnlock()

	for _, user := range b.users {
		if user.Wallet == address {
			return user
		}
	}

	return nil
}
