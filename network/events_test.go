package network

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkManager_DecodeLog(t *testing.T) {
	nm, chain := createManager(t)

	vLog := chain.MakeLog(contract.EventWinnerSelected, big.NewInt(7), player, big.NewInt(9000))
	vLog.BlockNumber = 55
	vLog.Index = 2

	event, err := nm.DecodeLog(vLog)
	require.Nil(t, err)
	assert.Equal(t, contract.EventWinnerSelected, event.Name)
	assert.Equal(t, uint64(55), event.BlockNumber)
	assert.Equal(t, uint(2), event.LogIndex)

	selected, ok := event.Payload.(*data.WinnerSelected)
	require.True(t, ok)
	assert.Equal(t, uint64(7), selected.RoundID)
	assert.Equal(t, player, selected.Winner)
	assert.Equal(t, "9000", selected.Prize.String())

	restarted, err := nm.DecodeLog(chain.MakeLog(contract.EventLotteryRestarted, big.NewInt(3), big.NewInt(4)))
	require.Nil(t, err)
	assert.Equal(t, &data.LotteryRestarted{OldRoundID: 3, NewRoundID: 4}, restarted.Payload)

	ended, err := nm.DecodeLog(chain.MakeLog(contract.EventLotteryEnded, big.NewInt(3), big.NewInt(123)))
	require.Nil(t, err)
	assert.Equal(t, "123", ended.Payload.(*data.LotteryEnded).RequestID.String())
}

func TestNetworkManager_DecodeLogErrors(t *testing.T) {
	nm, _ := createManager(t)

	_, err := nm.DecodeLog(types.Log{})
	assert.Equal(t, errNoTopics, err)

	_, err = nm.DecodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0x1234")}})
	assert.True(t, errors.Is(err, errUnknownEvent))
}

func TestNetworkManager_FilterPrizeClaimed(t *testing.T) {
	nm, chain := createManager(t)
	ctx := context.Background()

	txHash := common.HexToHash("0xabc")
	chain.EmitEventAt(150, common.HexToHash("0x01"), contract.EventPrizeClaimed, big.NewInt(1), player, big.NewInt(10))
	chain.EmitEventAt(160, txHash, contract.EventPrizeClaimed, big.NewInt(2), player, big.NewInt(20))

	events, err := nm.FilterPrizeClaimed(ctx, 2, 0, 200)
	require.Nil(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, txHash, events[0].TxHash)
	assert.Equal(t, uint64(2), events[0].Payload.(*data.PrizeClaimed).RoundID)

	events, err = nm.FilterPrizeClaimed(ctx, 2, 0, 155)
	require.Nil(t, err)
	assert.Empty(t, events)
}

func TestNetworkManager_RecentTicketPurchases(t *testing.T) {
	nm, chain := createManager(t)

	for i := int64(1); i <= 3; i++ {
		chain.EmitEvent(contract.EventTicketsPurchased, player, big.NewInt(1), big.NewInt(i), big.NewInt(i*100))
	}
	chain.EmitEvent(contract.EventFeeWithdrawn, player, big.NewInt(5))

	events, err := nm.RecentTicketPurchases(context.Background(), 1000)
	require.Nil(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(3), events[0].Payload.(*data.TicketsPurchased).TicketCount)
	assert.Equal(t, uint64(1), events[2].Payload.(*data.TicketsPurchased).TicketCount)

	queries := chain.FilterQueries()
	require.Len(t, queries, 1)
	assert.Equal(t, uint64(0), queries[0].FromBlock.Uint64())
}

func TestNetworkManager_WatchEvents(t *testing.T) {
	nm, chain := createManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := make(chan *data.Event, 10)
	done := make(chan error, 1)
	go func() {
		done <- nm.WatchEvents(ctx, 10*time.Millisecond, sink)
	}()

	time.Sleep(30 * time.Millisecond)
	chain.EmitEvent(contract.EventPrizeClaimed, big.NewInt(1), player, big.NewInt(10))

	select {
	case event := <-sink:
		assert.Equal(t, contract.EventPrizeClaimed, event.Name)
	case <-time.After(2 * time.Second):
		require.Fail(t, "event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(2 * time.Second):
		require.Fail(t, "watcher did not stop")
	}
}
