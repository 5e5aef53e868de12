package testscommon

import (
	"context"
	"math/big"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
)

// SnapshotSourceStub -
type SnapshotSourceStub struct {
	SubscribeCalled     func() (<-chan data.Update, func())
	CurrentCalled       func() *data.Snapshot
	RefreshPlayerCalled func(ctx context.Context, player common.Address) (*data.Snapshot, error)
}

// Subscribe -
func (stub *SnapshotSourceStub) Subscribe() (<-chan data.Update, func()) {
	if stub.SubscribeCalled != nil {
		return stub.SubscribeCalled()
	}

	ch := make(chan data.Update)
	return ch, func() {}
}

// Current -
func (stub *SnapshotSourceStub) Current() *data.Snapshot {
	if stub.CurrentCalled != nil {
		return stub.CurrentCalled()
	}

	return nil
}

// RefreshPlayer -
func (stub *SnapshotSourceStub) RefreshPlayer(ctx context.Context, player common.Address) (*data.Snapshot, error) {
	if stub.RefreshPlayerCalled != nil {
		return stub.RefreshPlayerCalled(ctx, player)
	}

	return nil, nil
}

// IsInterfaceNil -
func (stub *SnapshotSourceStub) IsInterfaceNil() bool {
	return stub == nil
}

// HistorySourceStub -
type HistorySourceStub struct {
	GetHistoryCalled func(ctx context.Context, limit int) ([]*data.HistoryEntry, error)
}

// GetHistory -
func (stub *HistorySourceStub) GetHistory(ctx context.Context, limit int) ([]*data.HistoryEntry, error) {
	if stub.GetHistoryCalled != nil {
		return stub.GetHistoryCalled(ctx, limit)
	}

	return make([]*data.HistoryEntry, 0), nil
}

// IsInterfaceNil -
func (stub *HistorySourceStub) IsInterfaceNil() bool {
	return stub == nil
}

// BalanceReaderStub -
type BalanceReaderStub struct {
	GetBalanceCalled func(ctx context.Context, address common.Address) (*big.Int, error)
}

// GetBalance -
func (stub *BalanceReaderStub) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	if stub.GetBalanceCalled != nil {
		return stub.GetBalanceCalled(ctx, address)
	}

	return big.NewInt(0), nil
}

// IsInterfaceNil -
func (stub *BalanceReaderStub) IsInterfaceNil() bool {
	return stub == nil
}
