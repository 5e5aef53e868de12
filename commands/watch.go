package commands

import (
	"context"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/poller"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
)

// Watch follows the current round and prints every refresh and contract event until the context is done
func (r *Runner) Watch(ctx context.Context) error {
	r.header("👀 ===== WATCHING LOTTERY =====")
	player, _ := r.tryConnect(ctx)

	roundPoller, err := poller.NewRoundPoller(NewPollerArgs(r.cfg, r.manager, player))
	if err != nil {
		return err
	}

	updates, unsubscribe := roundPoller.Subscribe()
	defer unsubscribe()

	err = roundPoller.Start(ctx)
	if err != nil {
		return err
	}
	defer roundPoller.Stop()

	r.println("Press Ctrl+C to stop")
	for {
		select {
		case <-ctx.Done():
			r.println()
			r.println("👋 Stopped watching")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			r.printUpdate(update, player)
		}
	}
}

func (r *Runner) printUpdate(update data.Update, player common.Address) {
	stamp := r.now().Format("15:04:05")

	if update.Event != nil {
		r.printf("[%s] %s: %s\n", stamp, eventTitles[update.Event.Name], describeEvent(update.Event, r.display.Currency))
		return
	}

	snapshot := update.Snapshot
	if update.Err != nil {
		r.printf("[%s] ⚠️  refresh failed: %s\n", stamp, utils.FriendlyError(update.Err))
		if snapshot == nil {
			return
		}
	}
	if snapshot == nil || snapshot.Round == nil {
		return
	}

	round := snapshot.Round
	line := []interface{}{
		stamp, round.ID, utils.StateBadge(round.State), utils.FormatNumber(round.TotalTickets),
		utils.FormatPrizePool(round.PrizePool, r.display.Currency),
		utils.FormatTimeRemaining(utils.ComputeTimeRemaining(round.EndTime, r.now())),
	}
	r.printf("[%s] Round #%d | %s | 🎟️  %s | 💰 %s | ⏳ %s", line...)
	if player != (common.Address{}) {
		r.printf(" | yours: %d (%s%%)", snapshot.PlayerTickets, utils.FormatWinChance(snapshot.PlayerTickets, round.TotalTickets))
	}
	if snapshot.Stale {
		r.printf(" | stale")
	}
	r.println()
}
