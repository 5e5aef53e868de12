package commands

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/history"
	"github.com/DrDelphi/LuckyOneBot/network"
	"github.com/DrDelphi/LuckyOneBot/poller"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/DrDelphi/LuckyOneBot/wallet"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("commands")

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var (
	ErrNilWriter          = errors.New("nil output writer")
	ErrNilConfig          = errors.New("nil config")
	ErrNilDeployment      = errors.New("nil deployment record")
	ErrInvalidTicketCount = errors.New("invalid ticket count")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrNotOwner           = errors.New("not the contract owner")
	ErrInsufficientFunds  = errors.New("insufficient balance")
)

// ArgsRunner holds the arguments needed to create a Runner
type ArgsRunner struct {
	Out        io.Writer
	Config     *data.AppConfig
	Deployment *data.Deployment
	Backend    network.ChainBackend
	PrivateKey *ecdsa.PrivateKey
	Now        func() time.Time
	OnClose    func()
}

// Runner executes the operational commands against one lottery deployment and prints the results
type Runner struct {
	out        io.Writer
	cfg        *data.AppConfig
	deployment *data.Deployment
	display    data.Display
	manager    *network.NetworkManager
	session    *wallet.Session
	history    *history.HistoryProvider
	poller     *poller.RoundPoller
	now        func() time.Time
	onClose    func()
}

// NewRunner creates a Runner. The private key is optional: read only commands work without it.
func NewRunner(args ArgsRunner) (*Runner, error) {
	if args.Out == nil {
		return nil, ErrNilWriter
	}
	if args.Config == nil {
		return nil, ErrNilConfig
	}
	if args.Deployment == nil {
		return nil, ErrNilDeployment
	}

	manager, err := network.NewNetworkManager(args.Backend, common.HexToAddress(args.Deployment.LotteryAddress))
	if err != nil {
		return nil, err
	}

	session, err := wallet.NewSession(wallet.ArgsSession{
		Reader:          manager,
		PrivateKey:      args.PrivateKey,
		ExpectedChainID: args.Config.Network.ChainID,
	})
	if err != nil {
		return nil, err
	}

	historyProvider, err := history.NewHistoryProvider(history.ArgsHistoryProvider{
		Reader:    manager,
		CacheSize: args.Config.History.CacheSize,
		ChunkSize: args.Config.History.ChunkSize,
		MaxBlocks: args.Config.History.MaxBlocks,
	})
	if err != nil {
		return nil, err
	}

	roundPoller, err := poller.NewRoundPoller(NewPollerArgs(args.Config, manager, common.Address{}))
	if err != nil {
		return nil, err
	}

	now := args.Now
	if now == nil {
		now = time.Now
	}

	display := args.Config.Display
	if display.Currency == "" {
		display.Currency = utils.DefaultCurrency
	}

	r := &Runner{
		out:        args.Out,
		cfg:        args.Config,
		deployment: args.Deployment,
		display:    display,
		manager:    manager,
		session:    session,
		history:    historyProvider,
		poller:     roundPoller,
		now:        now,
		onClose:    args.OnClose,
	}

	return r, nil
}

// NewPollerArgs maps the poller settings of the config onto the poller arguments
func NewPollerArgs(cfg *data.AppConfig, reader poller.LotteryReader, player common.Address) poller.ArgsRoundPoller {
	return poller.ArgsRoundPoller{
		Reader:         reader,
		Player:         player,
		Interval:       time.Duration(cfg.Poller.IntervalSeconds) * time.Second,
		EventsInterval: time.Duration(cfg.Poller.EventsPollSeconds) * time.Second,
		InitialBackoff: time.Duration(cfg.Poller.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Poller.MaxBackoffMs) * time.Millisecond,
		MaxRetries:     cfg.Poller.MaxRetries,
		Timeout:        time.Duration(cfg.Poller.TimeoutSeconds) * time.Second,
	}
}

// Manager returns the network manager bound to the deployment
func (r *Runner) Manager() *network.NetworkManager {
	return r.manager
}

// Close drops the wallet session and releases the backend
func (r *Runner) Close() {
	r.session.Disconnect()
	if r.onClose != nil {
		r.onClose()
	}
}

func (r *Runner) println(a ...interface{}) {
	_, _ = fmt.Fprintln(r.out, a...)
}

func (r *Runner) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

func (r *Runner) section(title string) {
	r.println()
	r.println(title)
	r.println(separator)
}

func (r *Runner) amount(wei *big.Int) string {
	return utils.FormatAmount(wei, r.display.Currency)
}

func (r *Runner) txLink(hash common.Hash) string {
	if r.display.Explorer == "" {
		return hash.Hex()
	}

	return strings.TrimRight(r.display.Explorer, "/") + "/tx/" + hash.Hex()
}

func (r *Runner) addressLink(address string) string {
	if r.display.Explorer == "" {
		return address
	}

	return strings.TrimRight(r.display.Explorer, "/") + "/address/" + address
}

func (r *Runner) header(title string) {
	r.println(title)
	r.printf("📍 Network: %s\n", r.deployment.Network)
}

// connect opens the wallet session for commands that sign transactions
func (r *Runner) connect(ctx context.Context) (common.Address, *ecdsa.PrivateKey, error) {
	err := r.session.Connect(ctx)
	if err != nil {
		return common.Address{}, nil, err
	}

	err = r.session.EnsureNetwork(ctx)
	if err != nil {
		return common.Address{}, nil, err
	}

	state := r.session.State()
	key, err := r.session.Signer()
	if err != nil {
		return common.Address{}, nil, err
	}

	r.printf("👤 Account: %s\n", state.Address.Hex())
	r.printf("💰 Balance: %s\n", r.amount(state.Balance))

	return state.Address, key, nil
}

// tryConnect opens the session when a key is configured, read only commands continue without it
func (r *Runner) tryConnect(ctx context.Context) (common.Address, bool) {
	err := r.session.Connect(ctx)
	if err != nil {
		if !errors.Is(err, wallet.ErrNoSigner) {
			log.Warn("can not connect wallet", "error", err)
		}
		return common.Address{}, false
	}

	state := r.session.State()
	r.printf("👤 Your Address: %s\n", state.Address.Hex())
	r.printf("💰 Your Balance: %s\n", r.amount(state.Balance))

	return state.Address, true
}

// chainNow returns the head block time, falling back to the local clock
func (r *Runner) chainNow(ctx context.Context) time.Time {
	blockTime, err := r.manager.GetLatestBlockTime(ctx)
	if err != nil {
		log.Debug("can not read block time, using local clock", "error", err)
		return r.now()
	}

	return blockTime
}

func (r *Runner) printRound(round *data.Round, now time.Time) {
	r.printf("🔢 Round ID: %d\n", round.ID)
	r.printf("🚀 Started: %s\n", utils.FormatTime(round.StartTime))
	r.printf("⏰ Ends: %s\n", utils.FormatTime(round.EndTime))

	remaining := utils.ComputeTimeRemaining(round.EndTime, now)
	r.printf("⏳ Time Remaining: %s\n", utils.FormatTimeRemaining(remaining))
	r.printf("🎟️  Total Tickets: %s\n", utils.FormatNumber(round.TotalTickets))
	r.printf("💰 Prize Pool: %s\n", utils.FormatPrizePool(round.PrizePool, r.display.Currency))
	r.printf("📊 Status: %s\n", utils.StateBadge(round.State))
	r.printf("🏁 Ended: %s\n", yesNo(round.Ended))

	if round.HasWinner() {
		r.printf("🏆 Winner: %s\n", round.Winner.Hex())
		r.printf("🎁 Prize Claimed: %s\n", yesNo(round.PrizeClaimed))
	} else {
		r.println("🏆 Winner: ⏳ Not yet selected")
	}
}

func (r *Runner) printBlockers(title string, blockers []string) {
	r.section(title)
	for _, blocker := range blockers {
		r.printf("   • %s\n", blocker)
	}
}

func (r *Runner) printGasEstimate(ctx context.Context, from common.Address, value *big.Int, method string, args ...interface{}) {
	gas, err := r.manager.EstimateGas(ctx, from, value, method, args...)
	if err != nil {
		r.println("⚠️  Could not estimate gas:", utils.FriendlyError(err))
		return
	}

	r.section("⛽ TRANSACTION DETAILS")
	r.printf("⛽ Estimated Gas: %d\n", gas)
	r.printf("💸 Estimated Cost: ~%s\n", r.amount(network.EstimateCost(gas, utils.EstimateGasPrice)))
}

// submit sends a transaction built by send and waits for its receipt
func (r *Runner) submit(ctx context.Context, method string, send func() (*types.Transaction, error)) (*types.Receipt, error) {
	r.println()
	r.printf("🚀 Submitting %s transaction...\n", method)

	tx, err := send()
	if err != nil {
		return nil, r.transactionFailed(err)
	}
	r.printf("📄 Transaction hash: %s\n", tx.Hash().Hex())
	r.println("⏳ Waiting for confirmation...")

	receipt, err := r.manager.WaitMined(ctx, tx)
	if err != nil {
		return nil, r.transactionFailed(err)
	}

	return receipt, nil
}

func (r *Runner) transactionFailed(err error) error {
	r.println("❌ TRANSACTION FAILED!")
	r.println("Error:", utils.FriendlyError(err))
	if tip := utils.RevertTip(err); tip != "" {
		r.println("💡 Tip:", tip)
	}

	return err
}

func (r *Runner) printReceipt(receipt *types.Receipt) {
	r.printf("⛽ Gas Used: %d\n", receipt.GasUsed)
	r.printf("🔗 Transaction: %s\n", r.txLink(receipt.TxHash))
}

func yesNo(value bool) string {
	if value {
		return "✅ Yes"
	}

	return "❌ No"
}
