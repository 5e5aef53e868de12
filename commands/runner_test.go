package commands

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DrDelphi/LuckyOneBot/config"
	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/testscommon"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testMnemonic = "test test test test test test test test test test test junk"
	oneDay       = uint64(24 * 3600)
)

var (
	ownerAddress  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	playerAddress = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	oneEther      = big.NewInt(1000000000000000000)
)

// syncBuffer guards the output written by background goroutines
type syncBuffer struct {
	mut sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mut.Lock()
	defer sb.mut.Unlock()

	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mut.Lock()
	defer sb.mut.Unlock()

	return sb.buf.String()
}

func createConfig() *data.AppConfig {
	cfg := &data.AppConfig{}
	cfg.Network.Name = "amoy"
	cfg.Network.ChainID = 80002
	cfg.Network.Explorer = "https://amoy.polygonscan.com"
	cfg.Poller.InitialBackoffMs = 1
	cfg.Poller.MaxBackoffMs = 5
	cfg.Poller.IntervalSeconds = 1
	cfg.Poller.EventsPollSeconds = 1
	config.ApplyDefaults(cfg)

	return cfg
}

func ownerKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := utils.GetPrivateKeyFromHex(ownerKeyHex)
	require.NoError(t, err)

	return key
}

func playerKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := utils.GetPrivateKeyFromSeed(testMnemonic, 1)
	require.NoError(t, err)

	return key
}

func createRunner(t *testing.T, chain *testscommon.LotteryChainMock, key *ecdsa.PrivateKey) (*Runner, *syncBuffer) {
	out := &syncBuffer{}
	r, err := NewRunner(ArgsRunner{
		Out:        out,
		Config:     createConfig(),
		Deployment: &data.Deployment{Network: "amoy", LotteryAddress: chain.Address.Hex()},
		Backend:    chain,
		PrivateKey: key,
		Now:        func() time.Time { return time.Unix(int64(chain.BlockTime), 0) },
	})
	require.NoError(t, err)

	return r, out
}

func TestNewRunner(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	args := ArgsRunner{
		Out:        &bytes.Buffer{},
		Config:     createConfig(),
		Deployment: &data.Deployment{LotteryAddress: chain.Address.Hex()},
		Backend:    chain,
	}

	noOut := args
	noOut.Out = nil
	_, err := NewRunner(noOut)
	assert.Equal(t, ErrNilWriter, err)

	noDeployment := args
	noDeployment.Deployment = nil
	_, err = NewRunner(noDeployment)
	assert.Equal(t, ErrNilDeployment, err)

	r, err := NewRunner(args)
	require.NoError(t, err)
	assert.Equal(t, chain.Address, r.Manager().ContractAddress())

	closed := false
	args.OnClose = func() { closed = true }
	r, err = NewRunner(args)
	require.NoError(t, err)
	r.Close()
	assert.True(t, closed)
}

func TestRunner_Status(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetBalance(ownerAddress, oneEther)
	chain.SetRound(&data.Round{
		ID:           1,
		StartTime:    time.Unix(int64(chain.BlockTime), 0),
		EndTime:      time.Unix(int64(chain.BlockTime+oneDay), 0),
		TotalTickets: 4,
		PrizePool:    big.NewInt(40000000000000000),
	})
	chain.SetPlayerTickets(1, ownerAddress, 1)
	chain.SetPlayerTickets(1, playerAddress, 3)
	chain.EmitEvent(contract.EventTicketsPurchased, playerAddress, big.NewInt(1), big.NewInt(3), big.NewInt(30000000000000000))

	r, out := createRunner(t, chain, ownerKey(t))
	err := r.Status(context.Background())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "LOTTERY STATUS DASHBOARD")
	assert.Contains(t, text, "📍 Network: amoy")
	assert.Contains(t, text, "Your Address: "+ownerAddress.Hex())
	assert.Contains(t, text, "You are the contract owner")
	assert.Contains(t, text, "🔢 Round ID: 1")
	assert.Contains(t, text, "📊 Status: 🟢 Open")
	assert.Contains(t, text, "⏳ Time Remaining: 1d 0h 0m")
	assert.Contains(t, text, "💰 Prize Pool: 0.0400 POL")
	assert.Contains(t, text, "👥 Players: 2")
	assert.Contains(t, text, "🎲 Win Chance: 25.00%")
	assert.Contains(t, text, "bought 3 ticket(s)")
	assert.Contains(t, text, "buy-tickets")
	assert.Contains(t, text, "https://amoy.polygonscan.com/address/"+chain.Address.Hex())
}

func TestRunner_StatusWithoutWallet(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetRound(&data.Round{
		ID:        1,
		StartTime: time.Unix(int64(chain.BlockTime), 0),
		EndTime:   time.Unix(int64(chain.BlockTime+oneDay), 0),
		Ended:     true,
		State:     1,
	})

	r, out := createRunner(t, chain, nil)
	err := r.Status(context.Background())
	require.NoError(t, err)

	text := out.String()
	assert.NotContains(t, text, "YOUR PARTICIPATION")
	assert.Contains(t, text, "🟡 Calculating Winner")
	assert.Contains(t, text, "No ticket purchases")
}

func TestRunner_StatusFailsWhenRequiredReadsFail(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetFailure(contract.MethodGetCurrentRoundID, assert.AnError)

	r, _ := createRunner(t, chain, nil)
	err := r.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), contract.MethodGetCurrentRoundID)
}

func TestRunner_BuyTickets(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetBalance(playerAddress, oneEther)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.BuyTickets(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{contract.MethodBuyTickets}, chain.SentMethods())
	text := out.String()
	assert.Contains(t, text, "💰 Total Cost: 0.0300 POL")
	assert.Contains(t, text, "TICKETS PURCHASED SUCCESSFULLY")
	assert.Contains(t, text, "🎟️  Your Tickets: 3 of 3")
	assert.Contains(t, text, "🎲 Win Chance: 100.00%")
	assert.Contains(t, text, "bought 3 ticket(s) in round 1")
	assert.Equal(t, uint64(3), chain.Round(1).TotalTickets)
}

func TestRunner_BuyTicketsRejectsInvalidCount(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, _ := createRunner(t, chain, playerKey(t))

	err := r.BuyTickets(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidTicketCount)

	err = r.BuyTickets(context.Background(), utils.MaxTicketsPerPurchase+1)
	assert.ErrorIs(t, err, ErrInvalidTicketCount)

	assert.Empty(t, chain.SentMethods())
}

func TestRunner_BuyTicketsNeedsWallet(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, _ := createRunner(t, chain, nil)

	err := r.BuyTickets(context.Background(), 1)
	assert.Error(t, err)
	assert.Empty(t, chain.SentMethods())
}

func TestRunner_BuyTicketsExpiredRound(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetBalance(playerAddress, oneEther)
	chain.AdvanceTime(8*oneDay, 10)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.BuyTickets(context.Background(), 1)
	require.NoError(t, err)

	assert.Empty(t, chain.SentMethods())
	assert.Contains(t, out.String(), "CANNOT BUY TICKETS")
	assert.Contains(t, out.String(), "Lottery period is over")
}

func TestRunner_BuyTicketsInsufficientBalance(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetBalance(playerAddress, big.NewInt(1000))

	r, _ := createRunner(t, chain, playerKey(t))
	err := r.BuyTickets(context.Background(), 2)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, chain.SentMethods())
}

func TestRunner_ClaimPrizeNothingToClaim(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, out := createRunner(t, chain, playerKey(t))

	err := r.ClaimPrize(context.Background(), 0, 5)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "No claimable prizes found")
	assert.Empty(t, chain.SentMethods())
}

func wonRound(chain *testscommon.LotteryChainMock, winner common.Address) {
	chain.SetRound(&data.Round{
		ID:           1,
		StartTime:    time.Unix(int64(chain.BlockTime), 0),
		EndTime:      time.Unix(int64(chain.BlockTime+oneDay), 0),
		TotalTickets: 2,
		PrizePool:    big.NewInt(20000000000000000),
	})
	chain.SetPlayerTickets(1, winner, 2)
	chain.SelectWinner(1, winner)
}

func TestRunner_ClaimPrizeScansRecentRounds(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	wonRound(chain, playerAddress)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.ClaimPrize(context.Background(), 0, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{contract.MethodClaimPrize}, chain.SentMethods())
	assert.True(t, chain.Round(1).PrizeClaimed)
	text := out.String()
	assert.Contains(t, text, "ROUND #1")
	assert.Contains(t, text, "PRIZE CLAIMED SUCCESSFULLY")
	assert.Contains(t, text, "💰 New Balance: 0.0200 POL")
}

func TestRunner_ClaimPrizeNotWinner(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	wonRound(chain, ownerAddress)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.ClaimPrize(context.Background(), 1, 0)
	require.NoError(t, err)

	assert.Empty(t, chain.SentMethods())
	assert.Contains(t, out.String(), "CANNOT CLAIM PRIZE")
	assert.Contains(t, out.String(), "You are not the winner of this round")
}

func TestRunner_EndLottery(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.SetPlayerTickets(1, playerAddress, 2)
	round := chain.Round(1)
	round.TotalTickets = 2
	round.PrizePool = big.NewInt(20000000000000000)
	chain.SetRound(round)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.EndLottery(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, chain.SentMethods())
	assert.Contains(t, out.String(), "Lottery period not over")

	chain.AdvanceTime(8*oneDay, 10)
	err = r.EndLottery(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{contract.MethodEndLottery}, chain.SentMethods())
	assert.Contains(t, out.String(), "LOTTERY ENDED SUCCESSFULLY")
	assert.Contains(t, out.String(), "randomness request 777")
	assert.Equal(t, uint8(1), chain.Round(1).State)
}

func TestRunner_EndLotteryForcedRevert(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	round := chain.Round(1)
	round.TotalTickets = 1
	chain.SetRound(round)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.EndLottery(context.Background(), true)
	require.Error(t, err)

	assert.Empty(t, chain.SentMethods())
	text := out.String()
	assert.Contains(t, text, "Forcing the end of the round")
	assert.Contains(t, text, "❌ TRANSACTION FAILED!")
	assert.Contains(t, text, "💡 Tip:")
}

func TestRunner_EndLotteryWithoutTicketsSuggestsRestart(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.AdvanceTime(8*oneDay, 10)

	r, out := createRunner(t, chain, playerKey(t))
	err := r.EndLottery(context.Background(), false)
	require.NoError(t, err)

	assert.Empty(t, chain.SentMethods())
	assert.Contains(t, out.String(), "No tickets have been sold")
	assert.Contains(t, out.String(), "restart-lottery")
}

func TestRunner_RestartLottery(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, out := createRunner(t, chain, playerKey(t))

	err := r.RestartLottery(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chain.SentMethods())
	assert.Contains(t, out.String(), "Lottery period not over yet")

	chain.AdvanceTime(8*oneDay, 10)
	err = r.RestartLottery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{contract.MethodRestartLottery}, chain.SentMethods())
	assert.Contains(t, out.String(), "🆕 New Round: 2")
}

func TestRunner_WithdrawFees(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()

	r, _ := createRunner(t, chain, playerKey(t))
	err := r.WithdrawFees(context.Background())
	assert.Equal(t, ErrNotOwner, err)

	r, out := createRunner(t, chain, ownerKey(t))
	err = r.WithdrawFees(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No fees to withdraw")
	assert.Empty(t, chain.SentMethods())

	chain.AccumulatedFees = big.NewInt(5000000000000000)
	err = r.WithdrawFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{contract.MethodWithdrawFees}, chain.SentMethods())
	assert.Contains(t, out.String(), "FEES WITHDRAWN SUCCESSFULLY")
	assert.Contains(t, out.String(), "0.0050 POL sent to "+ownerAddress.Hex())
}

func TestRunner_TransferOwnership(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, out := createRunner(t, chain, ownerKey(t))

	err := r.TransferOwnership(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	err = r.TransferOwnership(context.Background(), common.Address{}.Hex())
	assert.ErrorIs(t, err, ErrInvalidAddress)

	err = r.TransferOwnership(context.Background(), playerAddress.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{contract.MethodTransferOwnership}, chain.SentMethods())
	assert.Equal(t, playerAddress, chain.Owner)
	assert.Contains(t, out.String(), ownerAddress.Hex()+" -> "+playerAddress.Hex())

	err = r.TransferOwnership(context.Background(), playerAddress.Hex())
	assert.Equal(t, ErrNotOwner, err)
}

func TestRunner_PlayerInfo(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	wonRound(chain, playerAddress)
	chain.SetPlayerTickets(2, playerAddress, 1)
	round := chain.Round(2)
	round.TotalTickets = 4
	chain.SetRound(round)

	r, out := createRunner(t, chain, nil)
	err := r.PlayerInfo(context.Background(), "0x1234", 5)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	err = r.PlayerInfo(context.Background(), "", 5)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	err = r.PlayerInfo(context.Background(), playerAddress.Hex(), 5)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "👤 Player: "+playerAddress.Hex())
	assert.Contains(t, text, "Round #1 🔴 Closed | 🎟️  2/2 | 🎲 100.00% | 🏆 Won (unclaimed)")
	assert.Contains(t, text, "Round #2 🟢 Open | 🎟️  1/4 | 🎲 25.00% | 🟢 In progress")
	assert.Contains(t, text, "🎯 Rounds Participated: 2")
	assert.Contains(t, text, "🏆 Rounds Won: 1")
	assert.Contains(t, text, "UNCLAIMED PRIZES")
	assert.Contains(t, text, "claim-prize --round 1")
}

func TestRunner_History(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, out := createRunner(t, chain, nil)

	err := r.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No completed rounds yet")

	wonRound(chain, playerAddress)
	err = r.History(context.Background(), 10)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "🏆 Round #1")
	assert.Contains(t, text, "👑 Winner: "+playerAddress.Hex())
	assert.Contains(t, text, "💰 Prize: 0.0200 POL")
	assert.Contains(t, text, "⏳ Unclaimed")
}

func TestRunner_Fees(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	chain.FeeQuote = big.NewInt(160000000000000)
	r, out := createRunner(t, chain, nil)

	err := r.Fees(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidTicketCount)

	err = r.Fees(context.Background(), 10)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "🆓 Free tier: first 100 tickets")
	assert.Contains(t, text, "📊 Mid tier: up to 1000 tickets, 0.50% fee")
	assert.Contains(t, text, "📈 High tier: above 1000 tickets, 1% fee")
	assert.Contains(t, text, "💰 Ticket Cost: 0.1000 POL")
	assert.Contains(t, text, "💸 Fee: 0.0002 POL")
}

func TestRunner_Watch(t *testing.T) {
	t.Parallel()

	chain := testscommon.NewLotteryChainMock()
	r, out := createRunner(t, chain, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Round #1 | 🟢 Open")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "watch did not stop")
	}
	assert.Contains(t, out.String(), "Stopped watching")
}
