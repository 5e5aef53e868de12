package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Read-only contract methods
const (
	MethodGetCurrentRoundID        = "getCurrentRoundId"
	MethodGetLotteryRound          = "getLotteryRound"
	MethodGetPlayerTickets         = "getPlayerTickets"
	MethodGetPlayers               = "getPlayers"
	MethodGetTicketPrice           = "getTicketPrice"
	MethodGetMaxTicketsPerPurchase = "getMaxTicketsPerPurchase"
	MethodGetLotteryDuration       = "getLotteryDuration"
	MethodGetFeeStructure          = "getFeeStructure"
	MethodCalculateFeeForTickets   = "calculateFeeForTickets"
	MethodGetAccumulatedFees       = "getAccumulatedFees"
	MethodGetContractBalance       = "getContractBalance"
	MethodGetOwner                 = "getOwner"
)

// Transaction methods
const (
	MethodBuyTickets        = "buyTickets"
	MethodClaimPrize        = "claimPrize"
	MethodEndLottery        = "endLottery"
	MethodRestartLottery    = "restartLottery"
	MethodWithdrawFees      = "withdrawFees"
	MethodTransferOwnership = "transferOwnership"
)

// Contract events
const (
	EventTicketsPurchased     = "TicketsPurchased"
	EventLotteryEnded         = "LotteryEnded"
	EventWinnerSelected       = "WinnerSelected"
	EventPrizeClaimed         = "PrizeClaimed"
	EventLotteryRestarted     = "LotteryRestarted"
	EventFeeWithdrawn         = "FeeWithdrawn"
	EventOwnershipTransferred = "OwnershipTransferred"
)

// LotteryABI is the subset of the DecentralizedLottery / LuckyOne ABI used by the client.
// Both contract generations expose the same surface.
const LotteryABI = `[
	{"type":"function","name":"getCurrentRoundId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLotteryRound","stateMutability":"view","inputs":[{"name":"roundId","type":"uint256"}],"outputs":[
		{"name":"id","type":"uint256"},
		{"name":"startTime","type":"uint256"},
		{"name":"endTime","type":"uint256"},
		{"name":"totalTickets","type":"uint256"},
		{"name":"prizePool","type":"uint256"},
		{"name":"winner","type":"address"},
		{"name":"ended","type":"bool"},
		{"name":"prizeClaimed","type":"bool"},
		{"name":"state","type":"uint8"}]},
	{"type":"function","name":"getPlayerTickets","stateMutability":"view","inputs":[{"name":"player","type":"address"},{"name":"roundId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPlayers","stateMutability":"view","inputs":[{"name":"roundId","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getTicketPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getMaxTicketsPerPurchase","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLotteryDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getFeeStructure","stateMutability":"view","inputs":[],"outputs":[
		{"name":"freeTierLimit","type":"uint256"},
		{"name":"midTierLimit","type":"uint256"},
		{"name":"midTierFeePercentage","type":"uint256"},
		{"name":"highTierFeePercentage","type":"uint256"}]},
	{"type":"function","name":"calculateFeeForTickets","stateMutability":"view","inputs":[{"name":"currentTotalTickets","type":"uint256"},{"name":"ticketCount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getAccumulatedFees","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getContractBalance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getOwner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"buyTickets","stateMutability":"payable","inputs":[{"name":"ticketCount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"claimPrize","stateMutability":"nonpayable","inputs":[{"name":"roundId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"endLottery","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"restartLottery","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdrawFees","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
	{"type":"event","name":"TicketsPurchased","anonymous":false,"inputs":[
		{"name":"player","type":"address","indexed":true},
		{"name":"roundId","type":"uint256","indexed":true},
		{"name":"ticketCount","type":"uint256","indexed":false},
		{"name":"totalCost","type":"uint256","indexed":false}]},
	{"type":"event","name":"LotteryEnded","anonymous":false,"inputs":[
		{"name":"roundId","type":"uint256","indexed":true},
		{"name":"requestId","type":"uint256","indexed":false}]},
	{"type":"event","name":"WinnerSelected","anonymous":false,"inputs":[
		{"name":"roundId","type":"uint256","indexed":true},
		{"name":"winner","type":"address","indexed":true},
		{"name":"prize","type":"uint256","indexed":false}]},
	{"type":"event","name":"PrizeClaimed","anonymous":false,"inputs":[
		{"name":"roundId","type":"uint256","indexed":true},
		{"name":"winner","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"LotteryRestarted","anonymous":false,"inputs":[
		{"name":"oldRoundId","type":"uint256","indexed":true},
		{"name":"newRoundId","type":"uint256","indexed":true}]},
	{"type":"event","name":"FeeWithdrawn","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[
		{"name":"previousOwner","type":"address","indexed":true},
		{"name":"newOwner","type":"address","indexed":true}]}
]`

var (
	parsedABI abi.ABI
	parseErr  error
	parseOnce sync.Once
)

// ParsedABI returns the parsed lottery ABI. The definition is a compile time constant
// so a parse failure is a programming error.
func ParsedABI() abi.ABI {
	parseOnce.Do(func() {
		parsedABI, parseErr = abi.JSON(strings.NewReader(LotteryABI))
	})
	if parseErr != nil {
		panic("invalid lottery ABI: " + parseErr.Error())
	}

	return parsedABI
}
