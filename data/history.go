package data

import "github.com/ethereum/go-ethereum/common"

// HistoryEntry is a completed round together with the data needed to display it
type HistoryEntry struct {
	Round
	TotalPlayers     int
	ClaimTransaction common.Hash
}
