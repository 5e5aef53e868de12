package data

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a decoded contract log with its chain position
type Event struct {
	Name        string
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Payload     interface{}
}

// TicketsPurchased is emitted on every ticket purchase
type TicketsPurchased struct {
	Player      common.Address
	RoundID     uint64
	TicketCount uint64
	TotalCost   *big.Int
}

// LotteryEnded is emitted when a round is closed and randomness is requested
type LotteryEnded struct {
	RoundID   uint64
	RequestID *big.Int
}

// WinnerSelected is emitted by the VRF callback
type WinnerSelected struct {
	RoundID uint64
	Winner  common.Address
	Prize   *big.Int
}

// PrizeClaimed is emitted when the winner withdraws the prize
type PrizeClaimed struct {
	RoundID uint64
	Winner  common.Address
	Amount  *big.Int
}

// LotteryRestarted is emitted when an empty expired round is replaced
type LotteryRestarted struct {
	OldRoundID uint64
	NewRoundID uint64
}

// FeeWithdrawn is emitted when the owner collects the accumulated fees
type FeeWithdrawn struct {
	Owner  common.Address
	Amount *big.Int
}

// OwnershipTransferred is emitted on owner change
type OwnershipTransferred struct {
	PreviousOwner common.Address
	NewOwner      common.Address
}
