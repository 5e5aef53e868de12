package testscommon

import (
	"context"
	"math/big"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
)

// LotteryReaderStub -
type LotteryReaderStub struct {
	GetCurrentRoundIDCalled        func(ctx context.Context) (uint64, error)
	GetTicketPriceCalled           func(ctx context.Context) (*big.Int, error)
	GetMaxTicketsPerPurchaseCalled func(ctx context.Context) (uint64, error)
	GetLotteryDurationCalled       func(ctx context.Context) (uint64, error)
	GetLotteryRoundCalled          func(ctx context.Context, roundID uint64) (*data.Round, error)
	GetPlayersCalled               func(ctx context.Context, roundID uint64) ([]common.Address, error)
	GetPlayerTicketsCalled         func(ctx context.Context, player common.Address, roundID uint64) (uint64, error)
	GetBlockNumberCalled           func(ctx context.Context) (uint64, error)
	FilterPrizeClaimedCalled       func(ctx context.Context, roundID uint64, fromBlock uint64, toBlock uint64) ([]*data.Event, error)
	WatchEventsCalled              func(ctx context.Context, interval time.Duration, sink chan<- *data.Event) error
}

// GetCurrentRoundID -
func (stub *LotteryReaderStub) GetCurrentRoundID(ctx context.Context) (uint64, error) {
	if stub.GetCurrentRoundIDCalled != nil {
		return stub.GetCurrentRoundIDCalled(ctx)
	}

	return 1, nil
}

// GetTicketPrice -
func (stub *LotteryReaderStub) GetTicketPrice(ctx context.Context) (*big.Int, error) {
	if stub.GetTicketPriceCalled != nil {
		return stub.GetTicketPriceCalled(ctx)
	}

	return big.NewInt(10000000000000000), nil
}

// GetMaxTicketsPerPurchase -
func (stub *LotteryReaderStub) GetMaxTicketsPerPurchase(ctx context.Context) (uint64, error) {
	if stub.GetMaxTicketsPerPurchaseCalled != nil {
		return stub.GetMaxTicketsPerPurchaseCalled(ctx)
	}

	return 100, nil
}

// GetLotteryDuration -
func (stub *LotteryReaderStub) GetLotteryDuration(ctx context.Context) (uint64, error) {
	if stub.GetLotteryDurationCalled != nil {
		return stub.GetLotteryDurationCalled(ctx)
	}

	return 604800, nil
}

// GetLotteryRound -
func (stub *LotteryReaderStub) GetLotteryRound(ctx context.Context, roundID uint64) (*data.Round, error) {
	if stub.GetLotteryRoundCalled != nil {
		return stub.GetLotteryRoundCalled(ctx, roundID)
	}

	return &data.Round{ID: roundID, PrizePool: big.NewInt(0)}, nil
}

// GetPlayers -
func (stub *LotteryReaderStub) GetPlayers(ctx context.Context, roundID uint64) ([]common.Address, error) {
	if stub.GetPlayersCalled != nil {
		return stub.GetPlayersCalled(ctx, roundID)
	}

	return make([]common.Address, 0), nil
}

// GetPlayerTickets -
func (stub *LotteryReaderStub) GetPlayerTickets(ctx context.Context, player common.Address, roundID uint64) (uint64, error) {
	if stub.GetPlayerTicketsCalled != nil {
		return stub.GetPlayerTicketsCalled(ctx, player, roundID)
	}

	return 0, nil
}

// GetBlockNumber -
func (stub *LotteryReaderStub) GetBlockNumber(ctx context.Context) (uint64, error) {
	if stub.GetBlockNumberCalled != nil {
		return stub.GetBlockNumberCalled(ctx)
	}

	return 0, nil
}

// FilterPrizeClaimed -
func (stub *LotteryReaderStub) FilterPrizeClaimed(ctx context.Context, roundID uint64, fromBlock uint64, toBlock uint64) ([]*data.Event, error) {
	if stub.FilterPrizeClaimedCalled != nil {
		return stub.FilterPrizeClaimedCalled(ctx, roundID, fromBlock, toBlock)
	}

	return make([]*data.Event, 0), nil
}

// WatchEvents -
func (stub *LotteryReaderStub) WatchEvents(ctx context.Context, interval time.Duration, sink chan<- *data.Event) error {
	if stub.WatchEventsCalled != nil {
		return stub.WatchEventsCalled(ctx, interval, sink)
	}

	<-ctx.Done()
	return nil
}

// IsInterfaceNil -
func (stub *LotteryReaderStub) IsInterfaceNil() bool {
	return stub == nil
}
