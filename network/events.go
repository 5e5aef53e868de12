package network

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// DecodeLog converts a raw lottery log into a typed event
func (nm *NetworkManager) DecodeLog(vLog types.Log) (*data.Event, error) {
	if len(vLog.Topics) == 0 {
		return nil, errNoTopics
	}

	ev, err := nm.abi.EventByID(vLog.Topics[0])
	if err != nil {
		return nil, errors.Wrap(errUnknownEvent, vLog.Topics[0].Hex())
	}

	values := make(map[string]interface{})
	if len(vLog.Data) > 0 {
		err = nm.abi.UnpackIntoMap(values, ev.Name, vLog.Data)
		if err != nil {
			return nil, errors.Wrap(err, ev.Name)
		}
	}

	indexed := make(abi.Arguments, 0)
	for _, input := range ev.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	err = abi.ParseTopicsIntoMap(values, indexed, vLog.Topics[1:])
	if err != nil {
		return nil, errors.Wrap(err, ev.Name)
	}

	payload, err := buildPayload(ev.Name, values)
	if err != nil {
		return nil, err
	}

	event := &data.Event{
		Name:        ev.Name,
		BlockNumber: vLog.BlockNumber,
		TxHash:      vLog.TxHash,
		LogIndex:    vLog.Index,
		Payload:     payload,
	}

	return event, nil
}

func buildPayload(name string, values map[string]interface{}) (interface{}, error) {
	v := eventValues{values: values}

	var payload interface{}
	switch name {
	case contract.EventTicketsPurchased:
		payload = &data.TicketsPurchased{
			Player:      v.addr("player"),
			RoundID:     v.u64("roundId"),
			TicketCount: v.u64("ticketCount"),
			TotalCost:   v.bigInt("totalCost"),
		}
	case contract.EventLotteryEnded:
		payload = &data.LotteryEnded{
			RoundID:   v.u64("roundId"),
			RequestID: v.bigInt("requestId"),
		}
	case contract.EventWinnerSelected:
		payload = &data.WinnerSelected{
			RoundID: v.u64("roundId"),
			Winner:  v.addr("winner"),
			Prize:   v.bigInt("prize"),
		}
	case contract.EventPrizeClaimed:
		payload = &data.PrizeClaimed{
			RoundID: v.u64("roundId"),
			Winner:  v.addr("winner"),
			Amount:  v.bigInt("amount"),
		}
	case contract.EventLotteryRestarted:
		payload = &data.LotteryRestarted{
			OldRoundID: v.u64("oldRoundId"),
			NewRoundID: v.u64("newRoundId"),
		}
	case contract.EventFeeWithdrawn:
		payload = &data.FeeWithdrawn{
			Owner:  v.addr("owner"),
			Amount: v.bigInt("amount"),
		}
	case contract.EventOwnershipTransferred:
		payload = &data.OwnershipTransferred{
			PreviousOwner: v.addr("previousOwner"),
			NewOwner:      v.addr("newOwner"),
		}
	default:
		return nil, errors.Wrap(errUnknownEvent, name)
	}

	if v.err != nil {
		return nil, errors.Wrap(v.err, name)
	}

	return payload, nil
}

type eventValues struct {
	values map[string]interface{}
	err    error
}

func (ev *eventValues) bigInt(key string) *big.Int {
	value, ok := ev.values[key].(*big.Int)
	if !ok {
		ev.err = errors.Wrap(errInvalidResponse, key)
		return big.NewInt(0)
	}

	return value
}

func (ev *eventValues) u64(key string) uint64 {
	return ev.bigInt(key).Uint64()
}

func (ev *eventValues) addr(key string) common.Address {
	value, ok := ev.values[key].(common.Address)
	if !ok {
		ev.err = errors.Wrap(errInvalidResponse, key)
	}

	return value
}

// DecodeReceipt returns the lottery events found in a receipt, skipping logs of other contracts
func (nm *NetworkManager) DecodeReceipt(receipt *types.Receipt) []*data.Event {
	events := make([]*data.Event, 0)
	if receipt == nil {
		return events
	}

	for _, vLog := range receipt.Logs {
		if vLog.Address != nm.address {
			continue
		}

		event, err := nm.DecodeLog(*vLog)
		if err != nil {
			log.Debug("skipping log", "tx", vLog.TxHash.Hex(), "error", err)
			continue
		}
		events = append(events, event)
	}

	return events
}

// FindEvent returns the first event with the given name, or nil
func FindEvent(events []*data.Event, name string) *data.Event {
	for _, event := range events {
		if event.Name == name {
			return event
		}
	}

	return nil
}

func (nm *NetworkManager) eventTopics(names []string) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(names))
	for _, name := range names {
		ev, ok := nm.abi.Events[name]
		if !ok {
			return nil, errors.Wrap(errUnknownEvent, name)
		}
		topics = append(topics, ev.ID)
	}

	return topics, nil
}

// FilterEvents queries the lottery logs in [fromBlock, toBlock] for the named events, all events when names is empty.
// Extra topic filters apply to the indexed arguments in order.
func (nm *NetworkManager) FilterEvents(ctx context.Context, fromBlock uint64, toBlock uint64, names []string, extraTopics ...[]common.Hash) ([]*data.Event, error) {
	if len(names) == 0 {
		for name := range nm.abi.Events {
			names = append(names, name)
		}
	}

	ids, err := nm.eventTopics(names)
	if err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{nm.address},
		Topics:    append([][]common.Hash{ids}, extraTopics...),
	}
	logs, err := nm.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]*data.Event, 0, len(logs))
	for _, vLog := range logs {
		if vLog.Removed {
			continue
		}

		event, err := nm.DecodeLog(vLog)
		if err != nil {
			log.Debug("skipping log", "tx", vLog.TxHash.Hex(), "error", err)
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return events, nil
}

// FilterPrizeClaimed returns the PrizeClaimed events of one round in [fromBlock, toBlock]
func (nm *NetworkManager) FilterPrizeClaimed(ctx context.Context, roundID uint64, fromBlock uint64, toBlock uint64) ([]*data.Event, error) {
	roundTopic := common.BigToHash(new(big.Int).SetUint64(roundID))

	return nm.FilterEvents(ctx, fromBlock, toBlock, []string{contract.EventPrizeClaimed}, []common.Hash{roundTopic})
}

// RecentTicketPurchases returns the TicketsPurchased events of the last blocks, newest first
func (nm *NetworkManager) RecentTicketPurchases(ctx context.Context, blocks uint64) ([]*data.Event, error) {
	latest, err := nm.backend.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	fromBlock := uint64(0)
	if latest > blocks {
		fromBlock = latest - blocks
	}

	events, err := nm.FilterEvents(ctx, fromBlock, latest, []string{contract.EventTicketsPurchased})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	return events, nil
}

// WatchEvents polls new blocks every interval and pushes the decoded lottery events to sink
// until the context is done. Query errors are logged and the same range is retried on the next tick.
func (nm *NetworkManager) WatchEvents(ctx context.Context, interval time.Duration, sink chan<- *data.Event) error {
	lastBlock, err := nm.backend.BlockNumber(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		latest, err := nm.backend.BlockNumber(ctx)
		if err != nil {
			log.Warn("watchEvents - BlockNumber", "error", err)
			continue
		}
		if latest <= lastBlock {
			continue
		}

		events, err := nm.FilterEvents(ctx, lastBlock+1, latest, nil)
		if err != nil {
			log.Warn("watchEvents - FilterEvents", "from", lastBlock+1, "to", latest, "error", err)
			continue
		}
		lastBlock = latest

		for _, event := range events {
			select {
			case sink <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
