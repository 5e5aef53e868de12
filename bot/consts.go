package bot

import "github.com/pkg/errors"

const (
	menuGameInfo  = "ℹ️ Game Info"
	menuMyTickets = "🎫 My Tickets"
	menuHistory   = "📜 History"
	menuBalance   = "💰 Balance"
	menuMainHelp  = "📖 Help"
	menuAbout     = "©️ About"

	callbackRefresh = "REFRESH"

	aboutMessage = "*Made with ❤️ by* [@DrDelphi](https://t.me/DrDelphi)"
)

var (
	helpMessage = "`DISCLAIMER !`\n" +
		"\n" +
		"🔴 This bot only reads the lottery contract, it never asks for your keys.\n" +
		"🟠 Tickets are bought from your own wallet, every purchase is final.\n" +
		"🟡 The winner is drawn on chain with verifiable randomness.\n" +
		"🟢 Must be 18 years old or older to play!\n" +
		"\n" +
		"\n" +
		"`Instructions`\n" +
		"\n" +
		"This bot follows the LuckyOne lottery smart contract and announces every round on @LuckyOne.\n\n" +
		"Link your wallet with `/wallet 0x...` to see your tickets and your win chance.\n\n" +
		"The bot's menu consists of a few intuitive options: `Game Info`, `My Tickets`, `History` and `Balance`.\n\n" +
		"\n" +
		"🍀 Good luck!"
)

var (
	ErrNilSender    = errors.New("nil telegram sender")
	ErrNilConfig    = errors.New("nil config")
	ErrNilSource    = errors.New("nil snapshot source")
	ErrNilHistory   = errors.New("nil history source")
	ErrNilBalance   = errors.New("nil balance reader")
	errNoGroup      = errors.New("group chat id unknown")
	errUserNotFound = errors.New("user not found")
)
