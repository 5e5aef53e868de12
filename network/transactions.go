package network

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

func (nm *NetworkManager) newTransactor(ctx context.Context, privateKey *ecdsa.PrivateKey, value *big.Int) (*bind.TransactOpts, error) {
	chainID, err := nm.GetChainID(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.Value = value

	return opts, nil
}

func (nm *NetworkManager) transact(ctx context.Context, privateKey *ecdsa.PrivateKey, value *big.Int, method string, args ...interface{}) (*types.Transaction, error) {
	opts, err := nm.newTransactor(ctx, privateKey, value)
	if err != nil {
		return nil, err
	}

	tx, err := nm.contract.Transact(opts, method, args...)
	if err != nil {
		log.Warn("transaction not sent", "function", method, "sender", opts.From.Hex(), "error", err)
		return nil, err
	}

	log.Info("transaction sent", "function", method, "sender", opts.From.Hex(), "hash", tx.Hash().Hex())

	return tx, nil
}

// BuyTickets sends buyTickets(ticketCount) paying value, which must equal ticket price * ticketCount
func (nm *NetworkManager) BuyTickets(ctx context.Context, privateKey *ecdsa.PrivateKey, ticketCount uint64, value *big.Int) (*types.Transaction, error) {
	return nm.transact(ctx, privateKey, value, contract.MethodBuyTickets, new(big.Int).SetUint64(ticketCount))
}

func (nm *NetworkManager) ClaimPrize(ctx context.Context, privateKey *ecdsa.PrivateKey, roundID uint64) (*types.Transaction, error) {
	return nm.transact(ctx, privateKey, nil, contract.MethodClaimPrize, new(big.Int).SetUint64(roundID))
}

func (nm *NetworkManager) EndLottery(ctx context.Context, privateKey *ecdsa.PrivateKey) (*types.Transaction, error) {
	return nm.transact(ctx, privateKey, nil, contract.MethodEndLottery)
}

func (nm *NetworkManager) RestartLottery(ctx context.Context, privateKey *ecdsa.PrivateKey) (*types.Transaction, error) {
	return nm.transact(ctx, privateKey, nil, contract.MethodRestartLottery)
}

func (nm *NetworkManager) WithdrawFees(ctx context.Context, privateKey *ecdsa.PrivateKey) (*types.Transaction, error) {
	return nm.transact(ctx, privateKey, nil, contract.MethodWithdrawFees)
}

func (nm *NetworkManager) TransferOwnership(ctx context.Context, privateKey *ecdsa.PrivateKey, newOwner common.Address) (*types.Transaction, error) {
	return nm.transact(ctx, privateKey, nil, contract.MethodTransferOwnership, newOwner)
}

// EstimateGas returns the gas a contract call would use. Reverts surface here before anything is signed.
func (nm *NetworkManager) EstimateGas(ctx context.Context, from common.Address, value *big.Int, method string, args ...interface{}) (uint64, error) {
	input, err := nm.abi.Pack(method, args...)
	if err != nil {
		return 0, err
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &nm.address,
		Value: value,
		Data:  input,
	}

	return nm.backend.EstimateGas(ctx, msg)
}

// EstimateCost converts a gas amount into a cost at the given gas price
func EstimateCost(gas uint64, gasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
}

// WaitMined blocks until the transaction is included and returns its receipt.
// A reverted transaction returns the receipt together with ErrTxFailed.
func (nm *NetworkManager) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, nm.backend, tx)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, errors.Wrap(ErrTxFailed, tx.Hash().Hex())
	}

	return receipt, nil
}
