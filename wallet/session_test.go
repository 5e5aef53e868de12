package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/network"
	"github.com/DrDelphi/LuckyOneBot/testscommon"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var expectedAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func createSession(t *testing.T, expectedChainID uint64) (*Session, *testscommon.LotteryChainMock) {
	chain := testscommon.NewLotteryChainMock()
	nm, err := network.NewNetworkManager(chain, chain.Address)
	require.Nil(t, err)

	key, err := crypto.HexToECDSA(keyHex)
	require.Nil(t, err)

	session, err := NewSession(ArgsSession{Reader: nm, PrivateKey: key, ExpectedChainID: expectedChainID})
	require.Nil(t, err)

	return session, chain
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(ArgsSession{})
	assert.Equal(t, ErrNilChainReader, err)
}

func TestSession_Lifecycle(t *testing.T) {
	session, chain := createSession(t, 80002)
	chain.SetBalance(expectedAddress, big.NewInt(5000))
	ctx := context.Background()

	events := make([]string, 0)
	remove := session.OnChange(func(event string, state data.WalletState) {
		events = append(events, event)
	})

	_, err := session.Address()
	assert.Equal(t, ErrNotConnected, err)
	_, err = session.RefreshBalance(ctx)
	assert.Equal(t, ErrNotConnected, err)

	require.Nil(t, session.Connect(ctx))
	require.Nil(t, session.EnsureNetwork(ctx))

	state := session.State()
	assert.True(t, state.Connected)
	assert.Equal(t, expectedAddress, state.Address)
	assert.Equal(t, uint64(80002), state.ChainID)
	assert.Equal(t, "5000", state.Balance.String())

	balance, err := session.RefreshBalance(ctx)
	require.Nil(t, err)
	assert.Equal(t, "5000", balance.String())

	chain.SetBalance(expectedAddress, big.NewInt(7000))
	_, err = session.RefreshBalance(ctx)
	require.Nil(t, err)

	signer, err := session.Signer()
	require.Nil(t, err)
	assert.Equal(t, expectedAddress, crypto.PubkeyToAddress(signer.PublicKey))

	session.Disconnect()
	session.Disconnect()
	assert.False(t, session.State().Connected)
	_, err = session.Signer()
	assert.Equal(t, ErrNotConnected, err)

	assert.Equal(t, []string{EventConnected, EventBalanceChanged, EventDisconnected}, events)

	remove()
	require.Nil(t, session.Connect(ctx))
	assert.Len(t, events, 3)
}

func TestSession_StateIsACopy(t *testing.T) {
	session, chain := createSession(t, 0)
	chain.SetBalance(expectedAddress, big.NewInt(10))
	require.Nil(t, session.Connect(context.Background()))

	state := session.State()
	state.Balance.SetInt64(99)
	assert.Equal(t, "10", session.State().Balance.String())
}

func TestSession_EnsureNetwork(t *testing.T) {
	session, _ := createSession(t, 137)

	err := session.EnsureNetwork(context.Background())
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrWrongNetwork))
	assert.Contains(t, err.Error(), "expected chain id 137, connected to 80002")

	session, _ = createSession(t, 0)
	assert.Nil(t, session.EnsureNetwork(context.Background()))
}

func TestSession_ConnectWithoutKey(t *testing.T) {
	chain := testscommon.NewLotteryChainMock()
	nm, err := network.NewNetworkManager(chain, chain.Address)
	require.Nil(t, err)

	session, err := NewSession(ArgsSession{Reader: nm})
	require.Nil(t, err)
	assert.Equal(t, ErrNoSigner, session.Connect(context.Background()))
}
