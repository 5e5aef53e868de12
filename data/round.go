package data

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Round is a client-side copy of one lottery round as returned by getLotteryRound
type Round struct {
	ID           uint64
	StartTime    time.Time
	EndTime      time.Time
	TotalTickets uint64
	PrizePool    *big.Int
	Winner       common.Address
	Ended        bool
	PrizeClaimed bool
	State        uint8
}

// HasWinner returns true if the VRF callback already selected a winner
func (r *Round) HasWinner() bool {
	return r.Winner != (common.Address{})
}

// TimeRemaining holds a countdown broken into display units
type TimeRemaining struct {
	Total   time.Duration
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
	Expired bool
}
