package commands

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/history"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Status prints the dashboard of the deployment: contract info, current round, the caller's
// participation and the recent purchases
func (r *Runner) Status(ctx context.Context) error {
	r.header("🎰 ===== LOTTERY STATUS DASHBOARD =====")
	player, connected := r.tryConnect(ctx)

	snapshot, err := r.poller.Fetch(ctx, player)
	if err != nil {
		return err
	}

	r.section("📋 CONTRACT INFORMATION")
	address := r.manager.ContractAddress().Hex()
	r.printf("🏠 Contract Address: %s\n", address)

	owner, err := r.manager.GetOwner(ctx)
	isOwner := false
	if err == nil {
		isOwner = connected && owner == player
		r.printf("👑 Owner: %s\n", owner.Hex())
	}

	balance, err := r.manager.GetContractBalance(ctx)
	if err == nil {
		r.printf("💎 Contract Balance: %s\n", r.amount(balance))
	}
	r.printf("🎟️  Ticket Price: %s\n", r.amount(snapshot.TicketPrice))
	r.printf("📦 Max Tickets Per Purchase: %d\n", snapshot.MaxTickets)
	r.printf("⏱️  Round Duration: %s\n", formatDuration(snapshot.LotteryDuration))

	if isOwner {
		r.println("👑 You are the contract owner")
		fees, errFees := r.manager.GetAccumulatedFees(ctx)
		if errFees == nil {
			r.printf("💰 Accumulated Fees: %s\n", r.amount(fees))
		}
	}

	round := snapshot.Round
	now := r.chainNow(ctx)
	r.section("🎯 CURRENT LOTTERY ROUND")
	r.printRound(round, now)
	r.printf("👥 Players: %d\n", snapshot.TotalPlayers)

	if connected {
		r.section("👤 YOUR PARTICIPATION")
		r.printf("🎟️  Your Tickets: %s\n", utils.FormatNumber(snapshot.PlayerTickets))
		if snapshot.PlayerTickets > 0 {
			r.printf("🎲 Win Chance: %s%%\n", utils.FormatWinChance(snapshot.PlayerTickets, round.TotalTickets))
			spent := new(big.Int).Mul(snapshot.TicketPrice, new(big.Int).SetUint64(snapshot.PlayerTickets))
			r.printf("💸 Spent: %s\n", r.amount(spent))
		}
		if utils.CanClaim(round, player) {
			r.println("🎉 You won this round and can claim the prize!")
		}
	}

	r.printRecentActivity(ctx)

	r.section("💡 AVAILABLE ACTIONS")
	remaining := utils.ComputeTimeRemaining(round.EndTime, now)
	switch {
	case round.State == utils.StateOpen && !remaining.Expired:
		r.println("   • buy-tickets --count <n>")
	case round.State == utils.StateOpen && round.TotalTickets > 0:
		r.println("   • end-lottery (round expired with tickets sold)")
	case round.State == utils.StateOpen:
		r.println("   • restart-lottery (round expired without tickets)")
	case round.State == utils.StateCalculating:
		r.println("   • wait for the winner selection")
	}
	if connected && utils.CanClaim(round, player) {
		r.printf("   • claim-prize --round %d\n", round.ID)
	}
	r.println("   • player-info, history, fees, watch")

	r.println()
	r.printf("🔗 Explorer: %s\n", r.addressLink(address))

	return nil
}

func (r *Runner) printRecentActivity(ctx context.Context) {
	r.section("📈 RECENT ACTIVITY")

	events, err := r.manager.RecentTicketPurchases(ctx, utils.RecentActivityBlocks)
	if err != nil {
		r.println("⚠️  Could not load recent activity:", utils.FriendlyError(err))
		return
	}
	if len(events) == 0 {
		r.printf("No ticket purchases in the last %d blocks\n", utils.RecentActivityBlocks)
		return
	}

	for i, event := range events {
		if i == utils.RecentActivityShown {
			break
		}
		purchase, ok := event.Payload.(*data.TicketsPurchased)
		if !ok {
			continue
		}
		r.printf("   🎟️  %s bought %d ticket(s) for %s (round %d, block %d)\n",
			utils.ShortenAddress(purchase.Player.Hex()), purchase.TicketCount, r.amount(purchase.TotalCost),
			purchase.RoundID, event.BlockNumber)
	}
}

// Fees prints the fee schedule and what a purchase of ticketCount tickets would cost in the current round
func (r *Runner) Fees(ctx context.Context, ticketCount uint64) error {
	if ticketCount == 0 || ticketCount > utils.MaxTicketsPerPurchase {
		return errors.Wrapf(ErrInvalidTicketCount, "must be between 1 and %d", utils.MaxTicketsPerPurchase)
	}

	r.header("💸 ===== LOTTERY FEES =====")

	roundID, err := r.manager.GetCurrentRoundID(ctx)
	if err != nil {
		return err
	}
	round, err := r.manager.GetLotteryRound(ctx, roundID)
	if err != nil {
		return err
	}
	price, err := r.manager.GetTicketPrice(ctx)
	if err != nil {
		return err
	}
	quote, err := r.manager.QuoteFee(ctx, round.TotalTickets, ticketCount)
	if err != nil {
		return err
	}

	structure := quote.Structure
	r.section("📋 FEE STRUCTURE")
	r.printf("🆓 Free tier: first %d tickets\n", structure.FreeTierLimit)
	r.printf("📊 Mid tier: up to %d tickets, %s%% fee\n", structure.MidTierLimit, bpsToPercent(structure.MidTierFeeBps))
	r.printf("📈 High tier: above %d tickets, %s%% fee\n", structure.MidTierLimit, bpsToPercent(structure.HighTierFeeBps))

	cost := new(big.Int).Mul(price, new(big.Int).SetUint64(ticketCount))
	r.section("🧮 QUOTE")
	r.printf("🔢 Round: %d (%s tickets sold)\n", round.ID, utils.FormatNumber(round.TotalTickets))
	r.printf("🎟️  Tickets: %d\n", ticketCount)
	r.printf("💰 Ticket Cost: %s\n", r.amount(cost))
	r.printf("💸 Fee: %s\n", r.amount(quote.TotalFee))

	return nil
}

func formatDuration(seconds uint64) string {
	now := time.Unix(0, 0)
	end := now.Add(time.Duration(seconds) * time.Second)

	return utils.FormatTimeRemaining(utils.ComputeTimeRemaining(end, now))
}

func bpsToPercent(bps uint64) string {
	if bps%100 == 0 {
		return fmt.Sprintf("%d", bps/100)
	}

	return fmt.Sprintf("%.2f", float64(bps)/100)
}

// History prints the last completed rounds, newest first
func (r *Runner) History(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = utils.DefaultHistoryLimit
	}

	r.header("📜 ===== LOTTERY HISTORY =====")

	entries, err := r.history.GetHistory(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		r.println()
		r.println("No completed rounds yet")
		return nil
	}

	now := r.now()
	for _, entry := range entries {
		r.section(fmt.Sprintf("🏆 Round #%d", entry.ID))
		r.printf("👑 Winner: %s\n", entry.Winner.Hex())
		r.printf("💰 Prize: %s\n", r.amount(entry.PrizePool))
		r.printf("🎟️  Tickets: %s\n", utils.FormatNumber(entry.TotalTickets))
		r.printf("👥 Players: %d\n", entry.TotalPlayers)
		r.printf("📅 Ended: %s (%s)\n", utils.FormatTime(entry.EndTime), utils.RelativeTime(entry.EndTime, now))
		switch {
		case !entry.PrizeClaimed:
			r.println("🎁 Prize: ⏳ Unclaimed")
		case entry.ClaimTransaction != (common.Hash{}):
			r.printf("🎁 Prize: ✅ Claimed in %s\n", r.txLink(entry.ClaimTransaction))
		default:
			r.println("🎁 Prize: ✅ Claimed")
		}
	}

	return nil
}

// PlayerInfo prints the participation of a player over the last rounds. An empty address
// falls back to the configured wallet.
func (r *Runner) PlayerInfo(ctx context.Context, address string, rounds int) error {
	if rounds <= 0 {
		rounds = utils.DefaultPlayerRounds
	}

	var player common.Address
	if address != "" {
		if !common.IsHexAddress(address) {
			return errors.Wrap(ErrInvalidAddress, address)
		}
		player = common.HexToAddress(address)
	}

	r.header("👤 ===== PLAYER INFORMATION =====")
	if address == "" {
		var connected bool
		player, connected = r.tryConnect(ctx)
		if !connected {
			return errors.Wrap(ErrInvalidAddress, "no address given and no wallet configured")
		}
	} else {
		r.printf("👤 Player: %s\n", player.Hex())
		balance, err := r.manager.GetBalance(ctx, player)
		if err == nil {
			r.printf("💰 Balance: %s\n", r.amount(balance))
		}
	}

	report, err := r.history.PlayerReport(ctx, player, rounds)
	if err != nil {
		return err
	}

	r.section(fmt.Sprintf("🎯 LAST %d ROUNDS", rounds))
	if len(report.Rounds) == 0 {
		r.println("No participation found")
	}
	for _, playerRound := range report.Rounds {
		if playerRound.Err != nil {
			r.printf("   ⚠️  Round could not be read: %s\n", utils.FriendlyError(playerRound.Err))
			continue
		}
		round := playerRound.Round
		r.printf("   Round #%d %s | 🎟️  %d/%d | 🎲 %.2f%% | %s\n",
			round.ID, utils.StateBadge(round.State), playerRound.Tickets, round.TotalTickets,
			playerRound.WinChance, resultLabel(playerRound))
	}

	r.section("📊 SUMMARY")
	r.printf("🎯 Rounds Participated: %d\n", report.RoundsParticipated)
	r.printf("🏆 Rounds Won: %d\n", report.RoundsWon)
	r.printf("📈 Win Rate: %.2f%%\n", history.WinRate(report))
	r.printf("🎟️  Total Tickets: %s\n", utils.FormatNumber(report.TotalTickets))
	r.printf("💸 Total Spent: %s\n", r.amount(report.TotalSpent))
	r.printf("💰 Total Winnings: %s\n", r.amount(report.TotalWinnings))
	r.printf("📊 Net Result: %s\n", r.amount(history.NetResult(report)))

	if len(report.UnclaimedPrizes) > 0 {
		r.section("🎁 UNCLAIMED PRIZES")
		for _, round := range report.UnclaimedPrizes {
			r.printf("   Round #%d: %s (claim-prize --round %d)\n", round.ID, r.amount(round.PrizePool), round.ID)
		}
	}

	return nil
}

func resultLabel(playerRound *data.PlayerRound) string {
	switch playerRound.Result {
	case data.ResultWon:
		if playerRound.Unclaimed {
			return "🏆 Won (unclaimed)"
		}
		return "🏆 Won"
	case data.ResultLost:
		return "❌ Lost"
	case data.ResultPending:
		return "⏳ Pending"
	default:
		return "🟢 In progress"
	}
}
