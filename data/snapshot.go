package data

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is a point-in-time copy of the lottery state as seen by one player
type Snapshot struct {
	CurrentRoundID  uint64
	TicketPrice     *big.Int
	MaxTickets      uint64
	LotteryDuration uint64
	Round           *Round
	Player          common.Address
	PlayerTickets   uint64
	Players         []common.Address
	TotalPlayers    int
	FetchedAt       time.Time
	Stale           bool
	LastError       string
}

// Clone returns a copy that can be modified without affecting the cached value
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	clone := *s
	if s.Round != nil {
		round := *s.Round
		clone.Round = &round
	}
	clone.Players = append([]common.Address(nil), s.Players...)

	return &clone
}

// Update is published to the data source subscribers after every refresh and for every observed contract event
type Update struct {
	Snapshot *Snapshot
	Event    *Event
	Reason   string
	Err      error
}
