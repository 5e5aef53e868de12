package data

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Round results from a player's point of view
const (
	ResultInProgress = "in progress"
	ResultPending    = "pending winner selection"
	ResultWon        = "won"
	ResultLost       = "lost"
)

// PlayerRound describes a player's participation in one round
type PlayerRound struct {
	Round     *Round
	Tickets   uint64
	Spent     *big.Int
	WinChance float64
	Result    string
	Unclaimed bool
	Err       error
}

// PlayerReport aggregates a player's participation over a range of rounds
type PlayerReport struct {
	Player              common.Address
	CurrentRoundID      uint64
	Rounds              []*PlayerRound
	TotalTickets        uint64
	TotalSpent          *big.Int
	TotalWinnings       *big.Int
	RoundsParticipated  int
	RoundsWon           int
	UnclaimedPrizes     []*Round
	CurrentRoundTickets uint64
}
