package utils

import (
	"math/big"

	"github.com/pkg/errors"
)

const (
	DefaultConfigPath     = "config.json"
	DefaultDeploymentsDir = "deployments"
	DefaultCurrency       = "POL"

	StateOpen        = 0
	StateCalculating = 1
	StateClosed      = 2

	DisplayDecimals       = 4
	MaxTicketsPerPurchase = 100
	DefaultPlayerRounds   = 5
	DefaultHistoryLimit   = 10
	RecentActivityBlocks  = 1000
	RecentActivityShown   = 5

	hardened = uint32(0x80000000)
)

var (
	LotteryState = []string{"Open", "Calculating Winner", "Closed"}
	StateIcons   = []string{"🟢", "🟡", "🔴"}

	// EstimateGasPrice is the gas price used for the cost hints printed before a transaction
	EstimateGasPrice = big.NewInt(35000000000)

	// evm derivation path m/44'/60'/0'/0/index
	derivationPath = []uint32{44 + hardened, 60 + hardened, hardened, 0}
)

var (
	ErrNegativeAmount  = errors.New("negative amount")
	ErrEmptySeedphrase = errors.New("empty seed phrase")
	ErrNoSigningKey    = errors.New("no private key or seed phrase configured")
)
