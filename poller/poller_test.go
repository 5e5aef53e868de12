package poller

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/network"
	"github.com/DrDelphi/LuckyOneBot/testscommon"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	player = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	other  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func createArgs(t *testing.T) (ArgsRoundPoller, *testscommon.LotteryChainMock) {
	chain := testscommon.NewLotteryChainMock()
	nm, err := network.NewNetworkManager(chain, chain.Address)
	require.Nil(t, err)

	args := ArgsRoundPoller{
		Reader:         nm,
		Player:         player,
		Interval:       time.Hour,
		EventsInterval: 10 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		MaxRetries:     3,
	}

	return args, chain
}

func createPoller(t *testing.T) (*RoundPoller, *testscommon.LotteryChainMock) {
	args, chain := createArgs(t)
	p, err := NewRoundPoller(args)
	require.Nil(t, err)

	return p, chain
}

func TestNewRoundPoller(t *testing.T) {
	args, _ := createArgs(t)
	args.Reader = nil
	_, err := NewRoundPoller(args)
	assert.Equal(t, ErrNilReader, err)

	args, _ = createArgs(t)
	args.Interval = -time.Second
	_, err = NewRoundPoller(args)
	assert.Equal(t, ErrInvalidPeriod, err)

	args, _ = createArgs(t)
	args.Interval = 0
	args.MaxRetries = 0
	p, err := NewRoundPoller(args)
	require.Nil(t, err)
	assert.Equal(t, 5*time.Second, p.interval)
	assert.Equal(t, uint64(3), p.maxRetries)
	assert.False(t, p.IsInterfaceNil())
}

func TestRoundPoller_Fetch(t *testing.T) {
	p, chain := createPoller(t)
	chain.SetRound(&data.Round{ID: 1, TotalTickets: 5, PrizePool: big.NewInt(500), EndTime: time.Unix(1700604800, 0)})
	chain.SetPlayerTickets(1, player, 2)
	chain.SetPlayerTickets(1, other, 3)

	snapshot, err := p.Fetch(context.Background(), player)
	require.Nil(t, err)
	assert.Equal(t, uint64(1), snapshot.CurrentRoundID)
	assert.Equal(t, uint64(5), snapshot.Round.TotalTickets)
	assert.Equal(t, uint64(2), snapshot.PlayerTickets)
	assert.Equal(t, 2, snapshot.TotalPlayers)
	assert.Equal(t, uint64(100), snapshot.MaxTickets)
	assert.Equal(t, "10000000000000000", snapshot.TicketPrice.String())
	assert.False(t, snapshot.Stale)
	assert.False(t, snapshot.FetchedAt.IsZero())
}

func TestRoundPoller_OptionalReadsDegrade(t *testing.T) {
	p, chain := createPoller(t)
	chain.SetPlayerTickets(1, player, 2)
	chain.SetFailure(contract.MethodGetPlayerTickets, errors.New("execution reverted"))
	chain.SetFailure(contract.MethodGetPlayers, errors.New("timeout"))

	snapshot, err := p.Fetch(context.Background(), player)
	require.Nil(t, err)
	assert.Equal(t, uint64(0), snapshot.PlayerTickets)
	assert.Empty(t, snapshot.Players)
	assert.Equal(t, 0, snapshot.TotalPlayers)
	assert.Equal(t, 1, chain.CallCount(contract.MethodGetPlayerTickets))
}

func TestRoundPoller_NoPlayerSkipsTicketsRead(t *testing.T) {
	p, chain := createPoller(t)

	_, err := p.Fetch(context.Background(), common.Address{})
	require.Nil(t, err)
	assert.Equal(t, 0, chain.CallCount(contract.MethodGetPlayerTickets))
}

func TestRoundPoller_RequiredReadFailureKeepsStaleSnapshot(t *testing.T) {
	p, chain := createPoller(t)
	ctx := context.Background()

	require.Nil(t, p.Refresh(ctx))
	assert.False(t, p.Current().Stale)

	chain.SetFailure(contract.MethodGetTicketPrice, errors.New("rpc unavailable"))
	err := p.Refresh(ctx)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "rpc unavailable")
	assert.Equal(t, 1+3+1, chain.CallCount(contract.MethodGetTicketPrice))

	stale := p.Current()
	require.NotNil(t, stale)
	assert.True(t, stale.Stale)
	assert.Contains(t, stale.LastError, "rpc unavailable")
	assert.Equal(t, uint64(1), stale.CurrentRoundID)

	chain.SetFailure(contract.MethodGetTicketPrice, nil)
	require.Nil(t, p.Refresh(ctx))
	assert.False(t, p.Current().Stale)
	assert.Empty(t, p.Current().LastError)
}

func TestRoundPoller_RecoversWithinRetries(t *testing.T) {
	args, chain := createArgs(t)
	failures := 2
	chain.CallContractCalled = func(method string) error {
		if method == contract.MethodGetLotteryRound && failures > 0 {
			failures--
			return errors.New("header not found")
		}
		return nil
	}
	p, err := NewRoundPoller(args)
	require.Nil(t, err)

	snapshot, err := p.RefreshPlayer(context.Background(), player)
	require.Nil(t, err)
	assert.Equal(t, uint64(1), snapshot.Round.ID)
	assert.Equal(t, 0, failures)
}

func TestRoundPoller_FailureWithoutPreviousSnapshot(t *testing.T) {
	p, chain := createPoller(t)
	chain.SetFailure(contract.MethodGetCurrentRoundID, errors.New("down"))

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	snapshot, err := p.RefreshPlayer(context.Background(), player)
	assert.NotNil(t, err)
	assert.Nil(t, snapshot)
	assert.Nil(t, p.Snapshot(player))

	update := <-updates
	assert.Nil(t, update.Snapshot)
	assert.NotNil(t, update.Err)
}

func TestRoundPoller_CacheIsKeyedByPlayer(t *testing.T) {
	p, chain := createPoller(t)
	chain.SetPlayerTickets(1, player, 2)
	chain.SetPlayerTickets(1, other, 7)
	ctx := context.Background()

	_, err := p.RefreshPlayer(ctx, player)
	require.Nil(t, err)
	_, err = p.RefreshPlayer(ctx, other)
	require.Nil(t, err)

	assert.Equal(t, uint64(2), p.Snapshot(player).PlayerTickets)
	assert.Equal(t, uint64(7), p.Snapshot(other).PlayerTickets)

	chain.SetPlayerTickets(1, player, 1)
	_, err = p.RefreshPlayer(ctx, player)
	require.Nil(t, err)
	assert.Equal(t, uint64(3), p.Snapshot(player).PlayerTickets)

	cached := p.Snapshot(player)
	cached.PlayerTickets = 99
	assert.Equal(t, uint64(3), p.Snapshot(player).PlayerTickets)
}

func TestRoundPoller_SubscribeKeepsLatestUpdate(t *testing.T) {
	p, _ := createPoller(t)

	updates, unsubscribe := p.Subscribe()
	p.publish(data.Update{Reason: "first"})
	p.publish(data.Update{Reason: "second"})
	p.publish(data.Update{Reason: "third"})

	received := drain(updates)
	require.NotEmpty(t, received)
	assert.LessOrEqual(t, len(received), 2)
	assert.Equal(t, "third", received[len(received)-1].Reason)

	unsubscribe()
	unsubscribe()
	_, ok := <-updates
	assert.False(t, ok)

	p.publish(data.Update{Reason: "after"})
}

func TestRoundPoller_SubscribeDeliversEveryEvent(t *testing.T) {
	p, _ := createPoller(t)

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	p.HandleEvent(&data.Event{Name: contract.EventWinnerSelected})
	p.publish(data.Update{Reason: ReasonEvent})
	p.HandleEvent(&data.Event{Name: contract.EventPrizeClaimed})
	p.publish(data.Update{Reason: ReasonInterval})

	names := make([]string, 0)
	received := drain(updates)
	for _, update := range received {
		if update.Event != nil {
			names = append(names, update.Event.Name)
		}
	}
	assert.Equal(t, []string{contract.EventWinnerSelected, contract.EventPrizeClaimed}, names)
	assert.Equal(t, ReasonInterval, received[len(received)-1].Reason)
}

func TestRoundPoller_StartRefreshesOnEvents(t *testing.T) {
	p, chain := createPoller(t)
	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	require.Nil(t, p.Start(context.Background()))
	defer p.Stop()
	assert.Equal(t, ErrAlreadyStarted, p.Start(context.Background()))

	waitFor(t, updates, func(update data.Update) bool {
		return update.Reason == ReasonStart && update.Snapshot != nil
	})

	time.Sleep(30 * time.Millisecond)
	chain.SetPlayerTickets(1, player, 2)
	chain.EmitEvent(contract.EventTicketsPurchased, player, big.NewInt(1), big.NewInt(2), big.NewInt(200))

	update := waitFor(t, updates, func(update data.Update) bool {
		return update.Reason == ReasonEvent && update.Event == nil && update.Snapshot != nil
	})
	assert.Equal(t, uint64(2), update.Snapshot.PlayerTickets)

	p.Stop()
	p.Stop()
}

func TestRoundPoller_HandleEventIgnoresNonRoundEvents(t *testing.T) {
	p, _ := createPoller(t)

	p.HandleEvent(&data.Event{Name: contract.EventFeeWithdrawn})
	select {
	case <-p.trigger:
		require.Fail(t, "fee withdrawal should not trigger a refresh")
	default:
	}

	p.HandleEvent(&data.Event{Name: contract.EventWinnerSelected})
	assert.Equal(t, ReasonEvent, <-p.trigger)
}

func waitFor(t *testing.T, updates <-chan data.Update, match func(update data.Update) bool) data.Update {
	timeout := time.After(3 * time.Second)
	for {
		select {
		case update := <-updates:
			if match(update) {
				return update
			}
		case <-timeout:
			require.Fail(t, "expected update not received")
			return data.Update{}
		}
	}
}

func drain(updates <-chan data.Update) []data.Update {
	received := make([]data.Update, 0)
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return received
			}
			received = append(received, update)
		case <-time.After(100 * time.Millisecond):
			return received
		}
	}
}
