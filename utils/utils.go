package utils

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/tyler-smith/go-bip39"
)

func FormatTgUser(user *tgbotapi.User) string {
	name := fmt.Sprintf("%s %s [%v]", user.FirstName, user.LastName, user.ID)
	name = strings.TrimSpace(name)
	name = strings.Replace(name, "  ", " ", 1)
	if user.UserName != "" {
		name = fmt.Sprintf("@%s (%s)", user.UserName, name)
	}

	return name
}

func FormatDbTgUser(user *data.Telegram) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return fmt.Sprintf("[%s](tg://user?id=%v)", name, user.ID)
}

// GetPrivateKeyFromSeed derives the secp256k1 key at m/44'/60'/0'/0/index from a BIP-39 mnemonic
func GetPrivateKeyFromSeed(seedphrase string, index uint32) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(seedphrase) == "" {
		return nil, ErrEmptySeedphrase
	}

	seed, err := bip39.NewSeedWithErrorChecking(seedphrase, "")
	if err != nil {
		return nil, err
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}

	for _, childIdx := range append(derivationPath, index) {
		key, err = key.Derive(childIdx)
		if err != nil {
			return nil, err
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}

	return privKey.ToECDSA(), nil
}

// GetPrivateKeyFromHex parses a hex encoded private key, with or without the 0x prefix
func GetPrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
}

// LoadSigningKey returns the key configured for the CLI: an explicit private key wins over the seed phrase
func LoadSigningKey(cfg *data.AppConfig) (*ecdsa.PrivateKey, error) {
	if cfg.Wallet.PrivateKey != "" {
		return GetPrivateKeyFromHex(cfg.Wallet.PrivateKey)
	}
	if cfg.Wallet.Seedphrase != "" {
		return GetPrivateKeyFromSeed(cfg.Wallet.Seedphrase, cfg.Wallet.Index)
	}

	return nil, ErrNoSigningKey
}

func GetAddressFromPrivateKey(privKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privKey.PublicKey)
}

// FormatNumber groups the digits in thousands: 1234567 -> 1,234,567
func FormatNumber(n uint64) string {
	s := fmt.Sprintf("%v", n)
	for idx := len(s) - 3; idx > 0; idx -= 3 {
		s = s[:idx] + "," + s[idx:]
	}

	return s
}

// ShortenAddress keeps the first 6 and the last 4 characters: 0x1234...abcd
func ShortenAddress(address string) string {
	l := len(address)
	if l < 10 {
		return address
	}

	return address[:6] + "..." + address[l-4:]
}
