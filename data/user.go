package data

import "github.com/ethereum/go-ethereum/common"

// User is a Telegram user that may have linked a wallet address
type User struct {
	ID     int64
	Wallet common.Address
}

// HasWallet returns true if the user linked an address
func (u *User) HasWallet() bool {
	return u.Wallet != (common.Address{})
}

type Telegram struct {
	ID        int64
	UserName  string
	FirstName string
	LastName  string
}
