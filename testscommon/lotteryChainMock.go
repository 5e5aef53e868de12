package testscommon

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrSubscriptionsNotSupported is returned by SubscribeFilterLogs
var ErrSubscriptionsNotSupported = errors.New("subscriptions not supported")

const mockGasEstimate = uint64(120000)

var (
	mockGasPrice = big.NewInt(1000000000)
	mockBaseFee  = big.NewInt(1000000000)
)

// LotteryChainMock is an in-memory EVM node hosting one lottery contract.
// Calls are ABI-decoded and answered with ABI-encoded results so the client code runs unmodified against it.
type LotteryChainMock struct {
	mut sync.Mutex

	Address      common.Address
	ChainIDValue *big.Int
	BlockHeight  uint64
	BlockTime    uint64

	CurrentRound    uint64
	Rounds          map[uint64]*data.Round
	Players         map[uint64][]common.Address
	Tickets         map[uint64]map[common.Address]uint64
	TicketPrice     *big.Int
	MaxTickets      uint64
	Duration        uint64
	Fees            data.FeeStructure
	FeeQuote        *big.Int
	AccumulatedFees *big.Int
	Owner           common.Address
	Balances        map[common.Address]*big.Int

	FailMethods   map[string]error
	FilterLogsErr error

	CallContractCalled     func(method string) error
	FilterLogsCalled       func(query ethereum.FilterQuery) ([]types.Log, error)
	TransactionSentCalled  func(method string, tx *types.Transaction)
	RevertReasonOverrides  map[string]string
	FailTransactionReceipt bool

	logs       []types.Log
	receipts   map[common.Hash]*types.Receipt
	sent       []string
	calls      map[string]int
	nonces     map[common.Address]uint64
	filterRuns []ethereum.FilterQuery
	abi        abi.ABI
}

// NewLotteryChainMock creates a chain at block 100 with round 1 open for one week
func NewLotteryChainMock() *LotteryChainMock {
	mock := &LotteryChainMock{
		Address:         common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		ChainIDValue:    big.NewInt(80002),
		BlockHeight:     100,
		BlockTime:       1700000000,
		CurrentRound:    1,
		Rounds:          make(map[uint64]*data.Round),
		Players:         make(map[uint64][]common.Address),
		Tickets:         make(map[uint64]map[common.Address]uint64),
		TicketPrice:     big.NewInt(10000000000000000),
		MaxTickets:      100,
		Duration:        7 * 24 * 3600,
		Fees:            data.FeeStructure{FreeTierLimit: 100, MidTierLimit: 1000, MidTierFeeBps: 50, HighTierFeeBps: 100},
		FeeQuote:        big.NewInt(0),
		AccumulatedFees: big.NewInt(0),
		Owner:           common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		Balances:        make(map[common.Address]*big.Int),
		FailMethods:     make(map[string]error),
		receipts:        make(map[common.Hash]*types.Receipt),
		calls:           make(map[string]int),
		nonces:          make(map[common.Address]uint64),
		abi:             contract.ParsedABI(),
	}
	mock.Rounds[1] = mock.newRound(1)

	return mock
}

func (mock *LotteryChainMock) newRound(id uint64) *data.Round {
	start := int64(mock.BlockTime)
	return &data.Round{
		ID:        id,
		StartTime: unix(start),
		EndTime:   unix(start + int64(mock.Duration)),
		PrizePool: big.NewInt(0),
		State:     0,
	}
}

// SetRound stores a round, replacing any previous value with the same id
func (mock *LotteryChainMock) SetRound(round *data.Round) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	clone := *round
	if clone.PrizePool == nil {
		clone.PrizePool = big.NewInt(0)
	}
	mock.Rounds[round.ID] = &clone
}

// Round returns a copy of the stored round
func (mock *LotteryChainMock) Round(id uint64) *data.Round {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	round, ok := mock.Rounds[id]
	if !ok {
		return nil
	}
	clone := *round

	return &clone
}

// SetPlayerTickets records tickets for a player in a round without emitting events
func (mock *LotteryChainMock) SetPlayerTickets(roundID uint64, player common.Address, tickets uint64) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.addTickets(roundID, player, tickets)
}

func (mock *LotteryChainMock) addTickets(roundID uint64, player common.Address, tickets uint64) {
	if mock.Tickets[roundID] == nil {
		mock.Tickets[roundID] = make(map[common.Address]uint64)
	}
	if mock.Tickets[roundID][player] == 0 {
		mock.Players[roundID] = append(mock.Players[roundID], player)
	}
	mock.Tickets[roundID][player] += tickets
}

// SetBalance sets the native balance of an account
func (mock *LotteryChainMock) SetBalance(address common.Address, balance *big.Int) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.Balances[address] = new(big.Int).Set(balance)
}

// SetFailure makes every call of the contract method fail with err. A nil err clears the failure.
func (mock *LotteryChainMock) SetFailure(method string, err error) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	if err == nil {
		delete(mock.FailMethods, method)
		return
	}
	mock.FailMethods[method] = err
}

// AdvanceTime moves the head block forward
func (mock *LotteryChainMock) AdvanceTime(seconds uint64, blocks uint64) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.BlockTime += seconds
	mock.BlockHeight += blocks
}

// SelectWinner plays the VRF callback: the round gets a winner and is closed and the next round starts
func (mock *LotteryChainMock) SelectWinner(roundID uint64, winner common.Address) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	round := mock.Rounds[roundID]
	round.Winner = winner
	round.Ended = true
	round.State = 2
	mock.BlockHeight++
	mock.appendLog(common.Hash{}, contract.EventWinnerSelected, new(big.Int).SetUint64(roundID), winner, round.PrizePool)

	mock.CurrentRound = roundID + 1
	mock.Rounds[mock.CurrentRound] = mock.newRound(mock.CurrentRound)
}

// EmitEvent appends a lottery log in a new block. Values follow the event inputs order.
func (mock *LotteryChainMock) EmitEvent(name string, values ...interface{}) types.Log {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.BlockHeight++
	return mock.appendLog(common.Hash{}, name, values...)
}

// EmitEventAt appends a lottery log at a given block height
func (mock *LotteryChainMock) EmitEventAt(block uint64, txHash common.Hash, name string, values ...interface{}) types.Log {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	height := mock.BlockHeight
	mock.BlockHeight = block
	vLog := mock.appendLog(txHash, name, values...)
	if height > block {
		mock.BlockHeight = height
	}

	return vLog
}

// MakeLog builds the raw log of a lottery event without storing it
func (mock *LotteryChainMock) MakeLog(name string, values ...interface{}) types.Log {
	ev := mock.abi.Events[name]

	topics := []common.Hash{ev.ID}
	nonIndexed := make([]interface{}, 0)
	for i, input := range ev.Inputs {
		if !input.Indexed {
			nonIndexed = append(nonIndexed, values[i])
			continue
		}

		switch value := values[i].(type) {
		case common.Address:
			topics = append(topics, common.BytesToHash(value.Bytes()))
		case *big.Int:
			topics = append(topics, common.BigToHash(value))
		default:
			panic(fmt.Sprintf("unsupported indexed value %T", value))
		}
	}

	payload, err := ev.Inputs.NonIndexed().Pack(nonIndexed...)
	if err != nil {
		panic(err)
	}

	return types.Log{
		Address: mock.Address,
		Topics:  topics,
		Data:    payload,
	}
}

func (mock *LotteryChainMock) appendLog(txHash common.Hash, name string, values ...interface{}) types.Log {
	vLog := mock.MakeLog(name, values...)
	vLog.BlockNumber = mock.BlockHeight
	vLog.TxHash = txHash
	vLog.Index = uint(len(mock.logs))
	mock.logs = append(mock.logs, vLog)

	return vLog
}

// CallCount returns how many times a contract method was called through CallContract
func (mock *LotteryChainMock) CallCount(method string) int {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	return mock.calls[method]
}

// SentMethods returns the contract methods of the transactions sent so far
func (mock *LotteryChainMock) SentMethods() []string {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	return append([]string(nil), mock.sent...)
}

// FilterQueries returns the log queries received so far
func (mock *LotteryChainMock) FilterQueries() []ethereum.FilterQuery {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	return append([]ethereum.FilterQuery(nil), mock.filterRuns...)
}

// CallContract -
func (mock *LotteryChainMock) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, args, err := mock.decodeInput(call.Data)
	if err != nil {
		return nil, err
	}

	if mock.CallContractCalled != nil {
		err = mock.CallContractCalled(method.Name)
		if err != nil {
			return nil, err
		}
	}

	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.calls[method.Name]++
	if err = mock.FailMethods[method.Name]; err != nil {
		return nil, err
	}

	results, err := mock.view(method.Name, args)
	if err != nil {
		return nil, err
	}

	return method.Outputs.Pack(results...)
}

func (mock *LotteryChainMock) decodeInput(input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, errors.New("missing method id")
	}

	method, err := mock.abi.MethodById(input[:4])
	if err != nil {
		return nil, nil, err
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, err
	}

	return method, args, nil
}

func (mock *LotteryChainMock) view(method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case contract.MethodGetCurrentRoundID:
		return []interface{}{new(big.Int).SetUint64(mock.CurrentRound)}, nil
	case contract.MethodGetTicketPrice:
		return []interface{}{new(big.Int).Set(mock.TicketPrice)}, nil
	case contract.MethodGetMaxTicketsPerPurchase:
		return []interface{}{new(big.Int).SetUint64(mock.MaxTickets)}, nil
	case contract.MethodGetLotteryDuration:
		return []interface{}{new(big.Int).SetUint64(mock.Duration)}, nil
	case contract.MethodGetAccumulatedFees:
		return []interface{}{new(big.Int).Set(mock.AccumulatedFees)}, nil
	case contract.MethodGetContractBalance:
		return []interface{}{mock.contractBalance()}, nil
	case contract.MethodGetOwner:
		return []interface{}{mock.Owner}, nil
	case contract.MethodGetFeeStructure:
		return []interface{}{
			new(big.Int).SetUint64(mock.Fees.FreeTierLimit),
			new(big.Int).SetUint64(mock.Fees.MidTierLimit),
			new(big.Int).SetUint64(mock.Fees.MidTierFeeBps),
			new(big.Int).SetUint64(mock.Fees.HighTierFeeBps),
		}, nil
	case contract.MethodCalculateFeeForTickets:
		return []interface{}{new(big.Int).Set(mock.FeeQuote)}, nil
	case contract.MethodGetPlayers:
		players := mock.Players[args[0].(*big.Int).Uint64()]
		return []interface{}{append(make([]common.Address, 0), players...)}, nil
	case contract.MethodGetPlayerTickets:
		player := args[0].(common.Address)
		roundID := args[1].(*big.Int).Uint64()
		return []interface{}{new(big.Int).SetUint64(mock.Tickets[roundID][player])}, nil
	case contract.MethodGetLotteryRound:
		round, ok := mock.Rounds[args[0].(*big.Int).Uint64()]
		if !ok {
			round = &data.Round{PrizePool: big.NewInt(0), StartTime: unix(0), EndTime: unix(0)}
		}
		return []interface{}{
			new(big.Int).SetUint64(round.ID),
			timestamp(round.StartTime),
			timestamp(round.EndTime),
			new(big.Int).SetUint64(round.TotalTickets),
			new(big.Int).Set(round.PrizePool),
			round.Winner,
			round.Ended,
			round.PrizeClaimed,
			round.State,
		}, nil
	}

	return nil, errors.Errorf("method %s is not a view", method)
}

func (mock *LotteryChainMock) contractBalance() *big.Int {
	total := new(big.Int).Set(mock.AccumulatedFees)
	for _, round := range mock.Rounds {
		if !round.PrizeClaimed {
			total.Add(total, round.PrizePool)
		}
	}

	return total
}

// revertReason returns the reason the contract would revert the call with, or an empty string
func (mock *LotteryChainMock) revertReason(method string, from common.Address, value *big.Int, args []interface{}) string {
	if reason, ok := mock.RevertReasonOverrides[method]; ok {
		return reason
	}

	current := mock.Rounds[mock.CurrentRound]
	switch method {
	case contract.MethodBuyTickets:
		count := args[0].(*big.Int)
		if count.Sign() == 0 || count.Uint64() > mock.MaxTickets {
			return "Invalid ticket count"
		}
		expected := new(big.Int).Mul(mock.TicketPrice, count)
		if value == nil || value.Cmp(expected) != 0 {
			return "Incorrect payment amount"
		}
		if current.Ended || current.EndTime.Unix() <= int64(mock.BlockTime) {
			return "Lottery has ended"
		}
	case contract.MethodClaimPrize:
		round, ok := mock.Rounds[args[0].(*big.Int).Uint64()]
		switch {
		case !ok || round.Winner == (common.Address{}):
			return "Winner not selected yet"
		case round.Winner != from:
			return "Not the winner"
		case round.PrizeClaimed:
			return "Prize already claimed"
		}
	case contract.MethodEndLottery:
		switch {
		case current.Ended:
			return "Lottery already ended"
		case current.TotalTickets == 0:
			return "No tickets sold"
		case current.EndTime.Unix() > int64(mock.BlockTime):
			return "Lottery period not over"
		}
	case contract.MethodRestartLottery:
		switch {
		case current.Ended:
			return "Lottery already ended"
		case current.TotalTickets > 0:
			return "Tickets sold, end the lottery instead"
		case current.EndTime.Unix() > int64(mock.BlockTime):
			return "Lottery period not over"
		}
	case contract.MethodWithdrawFees:
		if from != mock.Owner {
			return "Not the contract owner"
		}
		if mock.AccumulatedFees.Sign() == 0 {
			return "No fees to withdraw"
		}
	case contract.MethodTransferOwnership:
		if from != mock.Owner {
			return "Not the contract owner"
		}
	}

	return ""
}

func (mock *LotteryChainMock) apply(txHash common.Hash, method string, from common.Address, value *big.Int, args []interface{}) {
	switch method {
	case contract.MethodBuyTickets:
		count := args[0].(*big.Int)
		current := mock.Rounds[mock.CurrentRound]
		current.TotalTickets += count.Uint64()
		current.PrizePool = new(big.Int).Add(current.PrizePool, value)
		mock.addTickets(mock.CurrentRound, from, count.Uint64())
		mock.appendLog(txHash, contract.EventTicketsPurchased, from, new(big.Int).SetUint64(mock.CurrentRound), count, value)
	case contract.MethodClaimPrize:
		roundID := args[0].(*big.Int)
		round := mock.Rounds[roundID.Uint64()]
		round.PrizeClaimed = true
		mock.addBalance(from, round.PrizePool)
		mock.appendLog(txHash, contract.EventPrizeClaimed, roundID, from, round.PrizePool)
	case contract.MethodEndLottery:
		current := mock.Rounds[mock.CurrentRound]
		current.Ended = true
		current.State = 1
		mock.appendLog(txHash, contract.EventLotteryEnded, new(big.Int).SetUint64(mock.CurrentRound), big.NewInt(777))
	case contract.MethodRestartLottery:
		old := mock.CurrentRound
		mock.Rounds[old].Ended = true
		mock.Rounds[old].State = 2
		mock.CurrentRound++
		mock.Rounds[mock.CurrentRound] = mock.newRound(mock.CurrentRound)
		mock.appendLog(txHash, contract.EventLotteryRestarted, new(big.Int).SetUint64(old), new(big.Int).SetUint64(mock.CurrentRound))
	case contract.MethodWithdrawFees:
		amount := mock.AccumulatedFees
		mock.AccumulatedFees = big.NewInt(0)
		mock.addBalance(from, amount)
		mock.appendLog(txHash, contract.EventFeeWithdrawn, from, amount)
	case contract.MethodTransferOwnership:
		newOwner := args[0].(common.Address)
		mock.appendLog(txHash, contract.EventOwnershipTransferred, mock.Owner, newOwner)
		mock.Owner = newOwner
	}
}

func (mock *LotteryChainMock) addBalance(address common.Address, amount *big.Int) {
	balance, ok := mock.Balances[address]
	if !ok {
		balance = big.NewInt(0)
	}
	mock.Balances[address] = new(big.Int).Add(balance, amount)
}

// EstimateGas -
func (mock *LotteryChainMock) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	method, args, err := mock.decodeInput(call.Data)
	if err != nil {
		return 0, err
	}

	mock.mut.Lock()
	defer mock.mut.Unlock()

	if reason := mock.revertReason(method.Name, call.From, call.Value, args); reason != "" {
		return 0, errors.Errorf("execution reverted: %s", reason)
	}

	return mockGasEstimate, nil
}

// SendTransaction -
func (mock *LotteryChainMock) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(mock.ChainIDValue), tx)
	if err != nil {
		return err
	}

	method, args, err := mock.decodeInput(tx.Data())
	if err != nil {
		return err
	}

	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.nonces[from]++
	mock.sent = append(mock.sent, method.Name)
	mock.BlockHeight++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     mockGasEstimate,
		BlockNumber: new(big.Int).SetUint64(mock.BlockHeight),
		Logs:        make([]*types.Log, 0),
	}

	if reason := mock.revertReason(method.Name, from, tx.Value(), args); reason != "" {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		first := len(mock.logs)
		mock.apply(tx.Hash(), method.Name, from, tx.Value(), args)
		for i := first; i < len(mock.logs); i++ {
			vLog := mock.logs[i]
			receipt.Logs = append(receipt.Logs, &vLog)
		}
	}
	mock.receipts[tx.Hash()] = receipt

	if mock.TransactionSentCalled != nil {
		mock.TransactionSentCalled(method.Name, tx)
	}

	return nil
}

// TransactionReceipt -
func (mock *LotteryChainMock) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	if mock.FailTransactionReceipt {
		return nil, errors.New("receipt not available")
	}

	receipt, ok := mock.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}

	return receipt, nil
}

// FilterLogs -
func (mock *LotteryChainMock) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if mock.FilterLogsCalled != nil {
		return mock.FilterLogsCalled(query)
	}

	mock.mut.Lock()
	defer mock.mut.Unlock()

	mock.filterRuns = append(mock.filterRuns, query)
	if mock.FilterLogsErr != nil {
		return nil, mock.FilterLogsErr
	}

	result := make([]types.Log, 0)
	for _, vLog := range mock.logs {
		if matchesQuery(vLog, query) {
			result = append(result, vLog)
		}
	}

	return result, nil
}

func matchesQuery(vLog types.Log, query ethereum.FilterQuery) bool {
	if query.FromBlock != nil && vLog.BlockNumber < query.FromBlock.Uint64() {
		return false
	}
	if query.ToBlock != nil && vLog.BlockNumber > query.ToBlock.Uint64() {
		return false
	}

	if len(query.Addresses) > 0 {
		found := false
		for _, address := range query.Addresses {
			found = found || address == vLog.Address
		}
		if !found {
			return false
		}
	}

	for i, options := range query.Topics {
		if len(options) == 0 {
			continue
		}
		if i >= len(vLog.Topics) {
			return false
		}

		found := false
		for _, topic := range options {
			found = found || topic == vLog.Topics[i]
		}
		if !found {
			return false
		}
	}

	return true
}

// SubscribeFilterLogs -
func (mock *LotteryChainMock) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	return nil, ErrSubscriptionsNotSupported
}

// HeaderByNumber -
func (mock *LotteryChainMock) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	return &types.Header{
		Number:  new(big.Int).SetUint64(mock.BlockHeight),
		Time:    mock.BlockTime,
		BaseFee: new(big.Int).Set(mockBaseFee),
	}, nil
}

// CodeAt -
func (mock *LotteryChainMock) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

// PendingCodeAt -
func (mock *LotteryChainMock) PendingCodeAt(_ context.Context, _ common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

// PendingNonceAt -
func (mock *LotteryChainMock) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	return mock.nonces[account], nil
}

// SuggestGasPrice -
func (mock *LotteryChainMock) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(mockGasPrice), nil
}

// SuggestGasTipCap -
func (mock *LotteryChainMock) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(mockGasPrice), nil
}

// BlockNumber -
func (mock *LotteryChainMock) BlockNumber(_ context.Context) (uint64, error) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	return mock.BlockHeight, nil
}

// BalanceAt -
func (mock *LotteryChainMock) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	mock.mut.Lock()
	defer mock.mut.Unlock()

	balance, ok := mock.Balances[account]
	if !ok {
		return big.NewInt(0), nil
	}

	return new(big.Int).Set(balance), nil
}

// ChainID -
func (mock *LotteryChainMock) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(mock.ChainIDValue), nil
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func timestamp(t time.Time) *big.Int {
	if t.IsZero() || t.Unix() < 0 {
		return big.NewInt(0)
	}

	return big.NewInt(t.Unix())
}
