package data

import "math/big"

// FeeStructure is the tiered fee schedule reported by getFeeStructure.
// Percentages are expressed in basis points.
type FeeStructure struct {
	FreeTierLimit  uint64
	MidTierLimit   uint64
	MidTierFeeBps  uint64
	HighTierFeeBps uint64
}

// FeeQuote is the fee the contract would charge for a purchase
type FeeQuote struct {
	TotalFee            *big.Int
	CurrentTotalTickets uint64
	TicketCount         uint64
	Structure           FeeStructure
}
