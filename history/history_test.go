package history

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
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
	alice = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob   = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func createChain(t *testing.T) (*network.NetworkManager, *testscommon.LotteryChainMock) {
	chain := testscommon.NewLotteryChainMock()
	chain.CurrentRound = 5
	chain.SetRound(&data.Round{ID: 1, TotalTickets: 4, PrizePool: big.NewInt(100), Winner: alice, Ended: true, PrizeClaimed: true, State: 2})
	chain.SetRound(&data.Round{ID: 2, TotalTickets: 6, PrizePool: big.NewInt(200), Winner: bob, Ended: true, State: 2})
	chain.SetRound(&data.Round{ID: 3, TotalTickets: 1, PrizePool: big.NewInt(300), Ended: true, State: 1})
	chain.SetRound(&data.Round{ID: 4, TotalTickets: 9, PrizePool: big.NewInt(400), Winner: alice, Ended: true, PrizeClaimed: true, State: 2})
	chain.SetRound(&data.Round{ID: 5, TotalTickets: 2, PrizePool: big.NewInt(500)})
	chain.SetPlayerTickets(1, alice, 3)
	chain.SetPlayerTickets(1, bob, 1)
	chain.SetPlayerTickets(2, alice, 2)
	chain.SetPlayerTickets(2, bob, 4)
	chain.SetPlayerTickets(4, alice, 9)
	chain.SetPlayerTickets(5, alice, 2)

	nm, err := network.NewNetworkManager(chain, chain.Address)
	require.Nil(t, err)

	return nm, chain
}

func TestNewHistoryProvider(t *testing.T) {
	_, err := NewHistoryProvider(ArgsHistoryProvider{})
	assert.Equal(t, ErrNilReader, err)

	_, err = NewHistoryProvider(ArgsHistoryProvider{Reader: &testscommon.LotteryReaderStub{}, ChunkSize: 10, MaxBlocks: 5})
	assert.Equal(t, ErrInvalidChunkSize, err)

	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: &testscommon.LotteryReaderStub{}})
	require.Nil(t, err)
	assert.Equal(t, defaultChunkSize, hp.chunkSize)
	assert.Equal(t, defaultMaxBlocks, hp.maxBlocks)
	assert.False(t, hp.IsInterfaceNil())
}

func TestHistoryProvider_GetHistory(t *testing.T) {
	nm, chain := createChain(t)
	claimTx := common.HexToHash("0xc1a1")
	chain.EmitEventAt(150, claimTx, contract.EventPrizeClaimed, big.NewInt(1), alice, big.NewInt(100))

	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: nm})
	require.Nil(t, err)

	entries, err := hp.GetHistory(context.Background(), 10)
	require.Nil(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(4), entries[0].ID)
	assert.Equal(t, uint64(2), entries[1].ID)
	assert.Equal(t, uint64(1), entries[2].ID)

	assert.Equal(t, claimTx, entries[2].ClaimTransaction)
	assert.Equal(t, 2, entries[2].TotalPlayers)
	assert.Equal(t, common.Hash{}, entries[1].ClaimTransaction)
	assert.Equal(t, 2, hp.CachedRounds())

	calls := chain.CallCount(contract.MethodGetLotteryRound)
	_, err = hp.GetHistory(context.Background(), 10)
	require.Nil(t, err)
	assert.Equal(t, calls+2, chain.CallCount(contract.MethodGetLotteryRound))
}

func TestHistoryProvider_GetHistoryLimit(t *testing.T) {
	nm, _ := createChain(t)
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: nm})
	require.Nil(t, err)

	entries, err := hp.GetHistory(context.Background(), 2)
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(4), entries[0].ID)
}

func TestHistoryProvider_SkipsFailedRounds(t *testing.T) {
	stub := &testscommon.LotteryReaderStub{
		GetCurrentRoundIDCalled: func(ctx context.Context) (uint64, error) {
			return 4, nil
		},
		GetLotteryRoundCalled: func(ctx context.Context, roundID uint64) (*data.Round, error) {
			if roundID == 2 {
				return nil, errors.New("timeout")
			}
			return &data.Round{ID: roundID, Winner: alice, Ended: true, PrizePool: big.NewInt(1)}, nil
		},
		GetPlayersCalled: func(ctx context.Context, roundID uint64) ([]common.Address, error) {
			return nil, errors.New("players unavailable")
		},
	}
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: stub})
	require.Nil(t, err)

	entries, err := hp.GetHistory(context.Background(), 10)
	require.Nil(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].ID)
	assert.Equal(t, uint64(1), entries[1].ID)
	assert.Equal(t, 0, entries[0].TotalPlayers)
}

func TestHistoryProvider_FirstRoundHasNoHistory(t *testing.T) {
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: &testscommon.LotteryReaderStub{}})
	require.Nil(t, err)

	entries, err := hp.GetHistory(context.Background(), 10)
	require.Nil(t, err)
	assert.Empty(t, entries)
}

func TestHistoryProvider_FindClaimTransactionScansNewestFirst(t *testing.T) {
	var (
		mut    sync.Mutex
		ranges [][2]uint64
	)
	expected := common.HexToHash("0xbeef")
	stub := &testscommon.LotteryReaderStub{
		GetBlockNumberCalled: func(ctx context.Context) (uint64, error) {
			return 12000, nil
		},
		FilterPrizeClaimedCalled: func(ctx context.Context, roundID uint64, fromBlock uint64, toBlock uint64) ([]*data.Event, error) {
			mut.Lock()
			ranges = append(ranges, [2]uint64{fromBlock, toBlock})
			mut.Unlock()

			switch fromBlock {
			case 7001:
				return nil, errors.New("query returned more than 10000 results")
			case 2001:
				return []*data.Event{{TxHash: common.HexToHash("0x01")}, {TxHash: expected}}, nil
			}
			return nil, nil
		},
	}
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: stub})
	require.Nil(t, err)

	assert.Equal(t, expected, hp.FindClaimTransaction(context.Background(), 3))
	assert.Equal(t, [][2]uint64{{7001, 12000}, {2001, 7000}}, ranges)
}

func TestHistoryProvider_FindClaimTransactionIsBounded(t *testing.T) {
	count := 0
	stub := &testscommon.LotteryReaderStub{
		GetBlockNumberCalled: func(ctx context.Context) (uint64, error) {
			return 1000000, nil
		},
		FilterPrizeClaimedCalled: func(ctx context.Context, roundID uint64, fromBlock uint64, toBlock uint64) ([]*data.Event, error) {
			count++
			return nil, nil
		},
	}
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: stub, ChunkSize: 5000, MaxBlocks: 50000})
	require.Nil(t, err)

	assert.Equal(t, common.Hash{}, hp.FindClaimTransaction(context.Background(), 3))
	assert.Equal(t, 10, count)
}

func TestHistoryProvider_PlayerReport(t *testing.T) {
	nm, _ := createChain(t)
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: nm})
	require.Nil(t, err)

	report, err := hp.PlayerReport(context.Background(), alice, 5)
	require.Nil(t, err)

	assert.Equal(t, uint64(5), report.CurrentRoundID)
	require.Len(t, report.Rounds, 4)
	assert.Equal(t, 4, report.RoundsParticipated)
	assert.Equal(t, 2, report.RoundsWon)
	assert.Equal(t, uint64(16), report.TotalTickets)
	assert.Equal(t, uint64(2), report.CurrentRoundTickets)
	assert.Equal(t, "160000000000000000", report.TotalSpent.String())
	assert.Equal(t, "500", report.TotalWinnings.String())
	assert.Empty(t, report.UnclaimedPrizes)

	assert.Equal(t, data.ResultWon, report.Rounds[0].Result)
	assert.Equal(t, 75.0, report.Rounds[0].WinChance)
	assert.Equal(t, data.ResultLost, report.Rounds[1].Result)
	assert.Equal(t, data.ResultInProgress, report.Rounds[3].Result)
	assert.Equal(t, 50.0, WinRate(report))
	assert.True(t, NetResult(report).Sign() < 0)
}

func TestHistoryProvider_PlayerReportUnclaimed(t *testing.T) {
	nm, chain := createChain(t)
	round := chain.Round(4)
	round.PrizeClaimed = false
	chain.SetRound(round)

	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: nm})
	require.Nil(t, err)

	report, err := hp.PlayerReport(context.Background(), alice, 2)
	require.Nil(t, err)
	require.Len(t, report.Rounds, 2)
	require.Len(t, report.UnclaimedPrizes, 1)
	assert.Equal(t, uint64(4), report.UnclaimedPrizes[0].ID)
	assert.True(t, report.Rounds[0].Unclaimed)
}

func TestHistoryProvider_GetHistoryBoundsReads(t *testing.T) {
	var (
		reads    int32
		inFlight int32
		peak     int32
	)
	stub := &testscommon.LotteryReaderStub{
		GetCurrentRoundIDCalled: func(ctx context.Context) (uint64, error) {
			return 10000, nil
		},
		GetLotteryRoundCalled: func(ctx context.Context, roundID uint64) (*data.Round, error) {
			atomic.AddInt32(&reads, 1)
			current := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				observed := atomic.LoadInt32(&peak)
				if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)

			return &data.Round{ID: roundID, Winner: alice, Ended: true, PrizePool: big.NewInt(1)}, nil
		},
	}
	hp, err := NewHistoryProvider(ArgsHistoryProvider{Reader: stub})
	require.Nil(t, err)

	entries, err := hp.GetHistory(context.Background(), 0)
	require.Nil(t, err)
	assert.Len(t, entries, defaultHistoryLimit)
	assert.Equal(t, uint64(9999), entries[0].ID)
	assert.Equal(t, int32(defaultHistoryLimit), atomic.LoadInt32(&reads))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(maxParallelReads))
}
