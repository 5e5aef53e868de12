package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ElrondNetwork/elrond-go-core/core/check"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("wallet")

// Session events
const (
	EventConnected      = "connected"
	EventDisconnected   = "disconnected"
	EventBalanceChanged = "balanceChanged"
)

var (
	ErrNilChainReader = errors.New("nil chain reader")
	ErrNoSigner       = errors.New("no signing key available")
	ErrNotConnected   = errors.New("wallet not connected")
	ErrWrongNetwork   = errors.New("wrong network")
)

// ChainReader provides the account data a session needs
type ChainReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	IsInterfaceNil() bool
}

// Listener is notified about session changes with the state after the change
type Listener func(event string, state data.WalletState)

// ArgsSession holds the arguments needed to create a Session
type ArgsSession struct {
	Reader          ChainReader
	PrivateKey      *ecdsa.PrivateKey
	ExpectedChainID uint64
}

// Session is the explicit wallet state owned by the application: created at start,
// connected before any signing, dropped at stop
type Session struct {
	reader          ChainReader
	privateKey      *ecdsa.PrivateKey
	expectedChainID uint64

	mut   sync.RWMutex
	state data.WalletState

	mutListeners sync.Mutex
	listeners    map[int]Listener
	nextID       int
}

// NewSession creates a disconnected session
func NewSession(args ArgsSession) (*Session, error) {
	if check.IfNil(args.Reader) {
		return nil, ErrNilChainReader
	}

	s := &Session{
		reader:          args.Reader,
		privateKey:      args.PrivateKey,
		expectedChainID: args.ExpectedChainID,
		state:           data.WalletState{Balance: big.NewInt(0)},
		listeners:       make(map[int]Listener),
	}

	return s, nil
}

// Connect resolves the address from the signing key and reads the chain id and the balance
func (s *Session) Connect(ctx context.Context) error {
	if s.privateKey == nil {
		return ErrNoSigner
	}

	chainID, err := s.reader.GetChainID(ctx)
	if err != nil {
		return err
	}

	address := crypto.PubkeyToAddress(s.privateKey.PublicKey)
	balance, err := s.reader.GetBalance(ctx, address)
	if err != nil {
		return err
	}

	s.mut.Lock()
	s.state = data.WalletState{
		Address:   address,
		Balance:   balance,
		ChainID:   chainID.Uint64(),
		Connected: true,
	}
	state := s.copyState()
	s.mut.Unlock()

	log.Debug("wallet connected", "address", address.Hex(), "chainID", state.ChainID)
	s.notify(EventConnected, state)

	return nil
}

// EnsureNetwork fails with ErrWrongNetwork when the node serves another chain than the configured one.
// A zero expected chain id accepts any network.
func (s *Session) EnsureNetwork(ctx context.Context) error {
	if s.expectedChainID == 0 {
		return nil
	}

	chainID, err := s.reader.GetChainID(ctx)
	if err != nil {
		return err
	}

	if chainID.Uint64() != s.expectedChainID {
		return errors.Wrapf(ErrWrongNetwork, "expected chain id %d, connected to %d", s.expectedChainID, chainID.Uint64())
	}

	return nil
}

// RefreshBalance reads the balance again and notifies the listeners when it changed
func (s *Session) RefreshBalance(ctx context.Context) (*big.Int, error) {
	s.mut.RLock()
	connected := s.state.Connected
	address := s.state.Address
	s.mut.RUnlock()

	if !connected {
		return nil, ErrNotConnected
	}

	balance, err := s.reader.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	s.mut.Lock()
	if !s.state.Connected {
		s.mut.Unlock()
		return nil, ErrNotConnected
	}
	changed := s.state.Balance.Cmp(balance) != 0
	s.state.Balance = balance
	state := s.copyState()
	s.mut.Unlock()

	if changed {
		s.notify(EventBalanceChanged, state)
	}

	return new(big.Int).Set(balance), nil
}

// Disconnect clears the session state
func (s *Session) Disconnect() {
	s.mut.Lock()
	wasConnected := s.state.Connected
	s.state = data.WalletState{Balance: big.NewInt(0)}
	state := s.copyState()
	s.mut.Unlock()

	if wasConnected {
		s.notify(EventDisconnected, state)
	}
}

// State returns a copy of the current session state
func (s *Session) State() data.WalletState {
	s.mut.RLock()
	defer s.mut.RUnlock()

	return s.copyState()
}

// Address returns the connected address or ErrNotConnected
func (s *Session) Address() (common.Address, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	if !s.state.Connected {
		return common.Address{}, ErrNotConnected
	}

	return s.state.Address, nil
}

// Signer returns the signing key of a connected session
func (s *Session) Signer() (*ecdsa.PrivateKey, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	if !s.state.Connected {
		return nil, ErrNotConnected
	}

	return s.privateKey, nil
}

// OnChange registers a listener and returns the function removing it
func (s *Session) OnChange(listener Listener) func() {
	s.mutListeners.Lock()
	defer s.mutListeners.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.mutListeners.Lock()
		delete(s.listeners, id)
		s.mutListeners.Unlock()
	}
}

func (s *Session) notify(event string, state data.WalletState) {
	s.mutListeners.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mutListeners.Unlock()

	for _, listener := range listeners {
		listener(event, state)
	}
}

func (s *Session) copyState() data.WalletState {
	state := s.state
	state.Balance = new(big.Int).Set(s.state.Balance)

	return state
}

// IsInterfaceNil returns true if there is no value under the interface
func (s *Session) IsInterfaceNil() bool {
	return s == nil
}
