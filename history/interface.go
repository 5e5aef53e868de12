package history

import (
	"context"
	"math/big"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
)

// LotteryReader is the read side of the lottery contract used to rebuild past rounds
type LotteryReader interface {
	GetCurrentRoundID(ctx context.Context) (uint64, error)
	GetLotteryRound(ctx context.Context, roundID uint64) (*data.Round, error)
	GetPlayers(ctx context.Context, roundID uint64) ([]common.Address, error)
	GetPlayerTickets(ctx context.Context, player common.Address, roundID uint64) (uint64, error)
	GetTicketPrice(ctx context.Context) (*big.Int, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	FilterPrizeClaimed(ctx context.Context, roundID uint64, fromBlock uint64, toBlock uint64) ([]*data.Event, error)
	IsInterfaceNil() bool
}
