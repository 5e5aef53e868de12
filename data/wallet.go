package data

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// WalletState is the public view of a wallet session
type WalletState struct {
	Address   common.Address
	Balance   *big.Int
	ChainID   uint64
	Connected bool
}
