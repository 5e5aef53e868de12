package network

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("network")

// NetworkManager - holds the required fields of a network manager
type NetworkManager struct {
	backend  ChainBackend
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract

	mutChainID sync.Mutex
	chainID    *big.Int
}

// DialBackend - connects to the JSON-RPC endpoint of an EVM node
func DialBackend(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		log.Error("can not connect to node", "url", url, "error", err)
		return nil, err
	}

	return client, nil
}

// NewNetworkManager - creates a new NetworkManager object bound to the lottery contract address
func NewNetworkManager(backend ChainBackend, contractAddress common.Address) (*NetworkManager, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if contractAddress == (common.Address{}) {
		return nil, ErrInvalidContractAddress
	}

	parsed := contract.ParsedABI()
	networkManager := &NetworkManager{
		backend:  backend,
		address:  contractAddress,
		abi:      parsed,
		contract: bind.NewBoundContract(contractAddress, parsed, backend, backend, backend),
	}

	return networkManager, nil
}

func (nm *NetworkManager) callContract(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := nm.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		To:   &nm.address,
		Data: input,
	}
	output, err := nm.backend.CallContract(ctx, msg, nil)
	if err != nil {
		log.Debug("callContract", "function", method, "error", err)
		return nil, errors.Wrap(err, method)
	}

	if len(output) == 0 {
		return nil, errors.Wrap(errEmptyResponse, method)
	}

	res, err := nm.abi.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrap(err, method)
	}
	if len(res) == 0 {
		return nil, errors.Wrap(errEmptyResponse, method)
	}

	return res, nil
}

func (nm *NetworkManager) getBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	res, err := nm.callContract(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	value, ok := res[0].(*big.Int)
	if !ok {
		return nil, errors.Wrap(errInvalidResponse, method)
	}

	return value, nil
}

func (nm *NetworkManager) getUint64(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	value, err := nm.getBigInt(ctx, method, args...)
	if err != nil {
		return 0, err
	}

	return value.Uint64(), nil
}

func (nm *NetworkManager) GetCurrentRoundID(ctx context.Context) (uint64, error) {
	return nm.getUint64(ctx, contract.MethodGetCurrentRoundID)
}

func (nm *NetworkManager) GetTicketPrice(ctx context.Context) (*big.Int, error) {
	return nm.getBigInt(ctx, contract.MethodGetTicketPrice)
}

func (nm *NetworkManager) GetMaxTicketsPerPurchase(ctx context.Context) (uint64, error) {
	return nm.getUint64(ctx, contract.MethodGetMaxTicketsPerPurchase)
}

// GetLotteryDuration returns the round length in seconds
func (nm *NetworkManager) GetLotteryDuration(ctx context.Context) (uint64, error) {
	return nm.getUint64(ctx, contract.MethodGetLotteryDuration)
}

func (nm *NetworkManager) GetAccumulatedFees(ctx context.Context) (*big.Int, error) {
	return nm.getBigInt(ctx, contract.MethodGetAccumulatedFees)
}

func (nm *NetworkManager) GetContractBalance(ctx context.Context) (*big.Int, error) {
	return nm.getBigInt(ctx, contract.MethodGetContractBalance)
}

func (nm *NetworkManager) GetPlayerTickets(ctx context.Context, player common.Address, roundID uint64) (uint64, error) {
	return nm.getUint64(ctx, contract.MethodGetPlayerTickets, player, new(big.Int).SetUint64(roundID))
}

func (nm *NetworkManager) GetOwner(ctx context.Context) (common.Address, error) {
	res, err := nm.callContract(ctx, contract.MethodGetOwner)
	if err != nil {
		return common.Address{}, err
	}

	owner, ok := res[0].(common.Address)
	if !ok {
		return common.Address{}, errors.Wrap(errInvalidResponse, contract.MethodGetOwner)
	}

	return owner, nil
}

func (nm *NetworkManager) GetPlayers(ctx context.Context, roundID uint64) ([]common.Address, error) {
	res, err := nm.callContract(ctx, contract.MethodGetPlayers, new(big.Int).SetUint64(roundID))
	if err != nil {
		return nil, err
	}

	players, ok := res[0].([]common.Address)
	if !ok {
		return nil, errors.Wrap(errInvalidResponse, contract.MethodGetPlayers)
	}

	return players, nil
}

// GetLotteryRound reads one round. Rounds that were never created come back zeroed, as the contract returns them.
func (nm *NetworkManager) GetLotteryRound(ctx context.Context, roundID uint64) (*data.Round, error) {
	res, err := nm.callContract(ctx, contract.MethodGetLotteryRound, new(big.Int).SetUint64(roundID))
	if err != nil {
		return nil, err
	}
	if len(res) != 9 {
		return nil, errors.Wrap(errInvalidResponse, contract.MethodGetLotteryRound)
	}

	id, ok1 := res[0].(*big.Int)
	startTime, ok2 := res[1].(*big.Int)
	endTime, ok3 := res[2].(*big.Int)
	totalTickets, ok4 := res[3].(*big.Int)
	prizePool, ok5 := res[4].(*big.Int)
	winner, ok6 := res[5].(common.Address)
	ended, ok7 := res[6].(bool)
	prizeClaimed, ok8 := res[7].(bool)
	state, ok9 := res[8].(uint8)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9) {
		return nil, errors.Wrap(errInvalidResponse, contract.MethodGetLotteryRound)
	}

	round := &data.Round{
		ID:           id.Uint64(),
		StartTime:    time.Unix(startTime.Int64(), 0),
		EndTime:      time.Unix(endTime.Int64(), 0),
		TotalTickets: totalTickets.Uint64(),
		PrizePool:    prizePool,
		Winner:       winner,
		Ended:        ended,
		PrizeClaimed: prizeClaimed,
		State:        state,
	}

	return round, nil
}

func (nm *NetworkManager) GetFeeStructure(ctx context.Context) (*data.FeeStructure, error) {
	res, err := nm.callContract(ctx, contract.MethodGetFeeStructure)
	if err != nil {
		return nil, err
	}
	if len(res) != 4 {
		return nil, errors.Wrap(errInvalidResponse, contract.MethodGetFeeStructure)
	}

	values := make([]uint64, 0, len(res))
	for _, item := range res {
		value, ok := item.(*big.Int)
		if !ok {
			return nil, errors.Wrap(errInvalidResponse, contract.MethodGetFeeStructure)
		}
		values = append(values, value.Uint64())
	}

	fees := &data.FeeStructure{
		FreeTierLimit:  values[0],
		MidTierLimit:   values[1],
		MidTierFeeBps:  values[2],
		HighTierFeeBps: values[3],
	}

	return fees, nil
}

// CalculateFeeForTickets asks the contract for the fee charged when buying ticketCount on top of currentTotalTickets
func (nm *NetworkManager) CalculateFeeForTickets(ctx context.Context, currentTotalTickets uint64, ticketCount uint64) (*big.Int, error) {
	return nm.getBigInt(ctx, contract.MethodCalculateFeeForTickets,
		new(big.Int).SetUint64(currentTotalTickets), new(big.Int).SetUint64(ticketCount))
}

// QuoteFee combines the fee schedule with the fee the contract computes for the purchase
func (nm *NetworkManager) QuoteFee(ctx context.Context, currentTotalTickets uint64, ticketCount uint64) (*data.FeeQuote, error) {
	structure, err := nm.GetFeeStructure(ctx)
	if err != nil {
		return nil, err
	}

	fee, err := nm.CalculateFeeForTickets(ctx, currentTotalTickets, ticketCount)
	if err != nil {
		return nil, err
	}

	quote := &data.FeeQuote{
		TotalFee:            fee,
		CurrentTotalTickets: currentTotalTickets,
		TicketCount:         ticketCount,
		Structure:           *structure,
	}

	return quote, nil
}

func (nm *NetworkManager) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := nm.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		log.Error("getBalance", "address", address.Hex(), "error", err)
		return nil, err
	}

	return balance, nil
}

// GetChainID returns the chain id reported by the node. The value is cached after the first successful read.
func (nm *NetworkManager) GetChainID(ctx context.Context) (*big.Int, error) {
	nm.mutChainID.Lock()
	defer nm.mutChainID.Unlock()

	if nm.chainID != nil {
		return new(big.Int).Set(nm.chainID), nil
	}

	chainID, err := nm.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	nm.chainID = chainID

	return new(big.Int).Set(chainID), nil
}

func (nm *NetworkManager) GetBlockNumber(ctx context.Context) (uint64, error) {
	return nm.backend.BlockNumber(ctx)
}

// GetLatestBlockTime returns the timestamp of the head block, used instead of the local clock for round deadlines
func (nm *NetworkManager) GetLatestBlockTime(ctx context.Context) (time.Time, error) {
	header, err := nm.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(int64(header.Time), 0), nil
}

// ContractAddress returns the lottery contract address the manager is bound to
func (nm *NetworkManager) ContractAddress() common.Address {
	return nm.address
}

// IsInterfaceNil returns true if there is no value under the interface
func (nm *NetworkManager) IsInterfaceNil() bool {
	return nm == nil
}
