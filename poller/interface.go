package poller

import (
	"context"
	"math/big"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
)

// LotteryReader is the read side of the lottery contract the poller depends on
type LotteryReader interface {
	GetCurrentRoundID(ctx context.Context) (uint64, error)
	GetTicketPrice(ctx context.Context) (*big.Int, error)
	GetMaxTicketsPerPurchase(ctx context.Context) (uint64, error)
	GetLotteryDuration(ctx context.Context) (uint64, error)
	GetLotteryRound(ctx context.Context, roundID uint64) (*data.Round, error)
	GetPlayers(ctx context.Context, roundID uint64) ([]common.Address, error)
	GetPlayerTickets(ctx context.Context, player common.Address, roundID uint64) (uint64, error)
	WatchEvents(ctx context.Context, interval time.Duration, sink chan<- *data.Event) error
	IsInterfaceNil() bool
}
