package bot

import (
	"context"
	"math/big"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// TelegramSender is the subset of the Telegram API used by the bot
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)
}

// SnapshotSource provides the lottery state and its updates
type SnapshotSource interface {
	Subscribe() (<-chan data.Update, func())
	Current() *data.Snapshot
	RefreshPlayer(ctx context.Context, player common.Address) (*data.Snapshot, error)
	IsInterfaceNil() bool
}

// HistorySource provides the completed rounds
type HistorySource interface {
	GetHistory(ctx context.Context, limit int) ([]*data.HistoryEntry, error)
	IsInterfaceNil() bool
}

// BalanceReader reads native balances
type BalanceReader interface {
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	IsInterfaceNil() bool
}
