package commands

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/network"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var eventTitles = map[string]string{
	contract.EventTicketsPurchased:     "🎟️  Tickets purchased",
	contract.EventLotteryEnded:         "🏁 Lottery ended",
	contract.EventWinnerSelected:       "🏆 Winner selected",
	contract.EventPrizeClaimed:         "🎁 Prize claimed",
	contract.EventLotteryRestarted:     "🔄 Lottery restarted",
	contract.EventFeeWithdrawn:         "💰 Fees withdrawn",
	contract.EventOwnershipTransferred: "👑 Ownership transferred",
}

// BuyTickets buys ticketCount tickets in the current round paying the exact ticket cost
func (r *Runner) BuyTickets(ctx context.Context, ticketCount uint64) error {
	if ticketCount == 0 || ticketCount > utils.MaxTicketsPerPurchase {
		return errors.Wrapf(ErrInvalidTicketCount, "must be between 1 and %d", utils.MaxTicketsPerPurchase)
	}

	r.header("🎟️  ===== BUY LOTTERY TICKETS =====")
	player, key, err := r.connect(ctx)
	if err != nil {
		return err
	}

	snapshot, err := r.poller.Fetch(ctx, player)
	if err != nil {
		return err
	}
	if ticketCount > snapshot.MaxTickets {
		return errors.Wrapf(ErrInvalidTicketCount, "the contract accepts at most %d tickets per purchase", snapshot.MaxTickets)
	}

	round := snapshot.Round
	now := r.chainNow(ctx)
	r.section("🎯 CURRENT LOTTERY ROUND")
	r.printRound(round, now)

	blockers := utils.BuyBlockers(round, now)
	if len(blockers) > 0 {
		r.printBlockers("🚫 CANNOT BUY TICKETS", blockers)
		return nil
	}

	cost := new(big.Int).Mul(snapshot.TicketPrice, new(big.Int).SetUint64(ticketCount))
	r.section("🧾 PURCHASE")
	r.printf("🎟️  Tickets: %d\n", ticketCount)
	r.printf("💰 Total Cost: %s\n", r.amount(cost))

	quote, err := r.manager.QuoteFee(ctx, round.TotalTickets, ticketCount)
	if err == nil {
		r.printf("💸 Fee: %s\n", r.amount(quote.TotalFee))
	}

	state := r.session.State()
	if state.Balance.Cmp(cost) < 0 {
		r.println("❌ Insufficient balance for this purchase")
		return errors.Wrapf(ErrInsufficientFunds, "have %s, need %s", r.amount(state.Balance), r.amount(cost))
	}

	ticketsArg := new(big.Int).SetUint64(ticketCount)
	r.printGasEstimate(ctx, player, cost, contract.MethodBuyTickets, ticketsArg)

	receipt, err := r.submit(ctx, contract.MethodBuyTickets, func() (*types.Transaction, error) {
		return r.manager.BuyTickets(ctx, key, ticketCount, cost)
	})
	if err != nil {
		return err
	}

	r.println()
	r.println("🎉 TICKETS PURCHASED SUCCESSFULLY!")
	r.printReceipt(receipt)
	r.printEvents(receipt)

	updated, err := r.poller.Fetch(ctx, player)
	if err == nil {
		r.printf("🎟️  Your Tickets: %d of %d\n", updated.PlayerTickets, updated.Round.TotalTickets)
		r.printf("🎲 Win Chance: %s%%\n", utils.FormatWinChance(updated.PlayerTickets, updated.Round.TotalTickets))
	}
	r.refreshBalance(ctx)

	return nil
}

// ClaimPrize claims the prize of roundID. A zero roundID scans the last scanRounds rounds
// and claims every prize the wallet won and did not claim yet.
func (r *Runner) ClaimPrize(ctx context.Context, roundID uint64, scanRounds int) error {
	r.header("🏆 ===== CLAIM LOTTERY PRIZE =====")
	player, key, err := r.connect(ctx)
	if err != nil {
		return err
	}

	if roundID != 0 {
		round, errRound := r.manager.GetLotteryRound(ctx, roundID)
		if errRound != nil {
			return errRound
		}

		r.section(fmt.Sprintf("🎯 ROUND #%d", round.ID))
		r.printRound(round, r.chainNow(ctx))

		blockers := utils.ClaimBlockers(round, player)
		if len(blockers) > 0 {
			r.printBlockers("🚫 CANNOT CLAIM PRIZE", blockers)
			return nil
		}

		return r.claim(ctx, key, player, round)
	}

	claimable, err := r.findClaimable(ctx, player, scanRounds)
	if err != nil {
		return err
	}
	if len(claimable) == 0 {
		r.println()
		r.println("No claimable prizes found")
		return nil
	}

	for _, round := range claimable {
		r.section(fmt.Sprintf("🎯 ROUND #%d", round.ID))
		r.printf("💰 Prize: %s\n", r.amount(round.PrizePool))
		err = r.claim(ctx, key, player, round)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) findClaimable(ctx context.Context, player common.Address, scanRounds int) ([]*data.Round, error) {
	if scanRounds <= 0 {
		scanRounds = utils.DefaultPlayerRounds
	}

	currentRoundID, err := r.manager.GetCurrentRoundID(ctx)
	if err != nil {
		return nil, err
	}

	r.printf("🔍 Scanning the last %d rounds for unclaimed prizes...\n", scanRounds)
	claimable := make([]*data.Round, 0)
	for i := 0; i < scanRounds && currentRoundID > uint64(i); i++ {
		roundID := currentRoundID - uint64(i)
		round, errRound := r.manager.GetLotteryRound(ctx, roundID)
		if errRound != nil {
			log.Debug("can not read round", "round", roundID, "error", errRound)
			continue
		}
		if utils.CanClaim(round, player) {
			claimable = append(claimable, round)
		}
	}

	return claimable, nil
}

func (r *Runner) claim(ctx context.Context, key *ecdsa.PrivateKey, player common.Address, round *data.Round) error {
	r.printGasEstimate(ctx, player, nil, contract.MethodClaimPrize, new(big.Int).SetUint64(round.ID))

	receipt, err := r.submit(ctx, contract.MethodClaimPrize, func() (*types.Transaction, error) {
		return r.manager.ClaimPrize(ctx, key, round.ID)
	})
	if err != nil {
		return err
	}

	r.println()
	r.println("🎉 PRIZE CLAIMED SUCCESSFULLY!")
	r.printReceipt(receipt)
	r.printEvents(receipt)
	r.refreshBalance(ctx)

	return nil
}

// EndLottery closes the current round and requests the winner randomness. force skips the
// expiry check, the contract still enforces its own rules.
func (r *Runner) EndLottery(ctx context.Context, force bool) error {
	r.header("🏁 ===== END LOTTERY ROUND =====")
	player, key, err := r.connect(ctx)
	if err != nil {
		return err
	}

	currentRoundID, err := r.manager.GetCurrentRoundID(ctx)
	if err != nil {
		return err
	}
	round, err := r.manager.GetLotteryRound(ctx, currentRoundID)
	if err != nil {
		return err
	}

	now := r.chainNow(ctx)
	r.section("🎯 CURRENT LOTTERY ROUND")
	r.printRound(round, now)

	blockers := utils.EndBlockers(round, currentRoundID, now, force)
	if len(blockers) > 0 {
		r.printBlockers("🚫 CANNOT END LOTTERY", blockers)
		if round.TotalTickets == 0 && !round.Ended {
			r.println("💡 Tip: use restart-lottery for an expired round without tickets")
		}
		return nil
	}
	if force {
		r.println("⚠️  Forcing the end of the round")
	}

	r.printGasEstimate(ctx, player, nil, contract.MethodEndLottery)

	receipt, err := r.submit(ctx, contract.MethodEndLottery, func() (*types.Transaction, error) {
		return r.manager.EndLottery(ctx, key)
	})
	if err != nil {
		return err
	}

	r.println()
	r.println("🎉 LOTTERY ENDED SUCCESSFULLY!")
	r.printReceipt(receipt)
	r.printEvents(receipt)
	r.println("⏳ The winner will be selected when the randomness request is fulfilled")

	return nil
}

// RestartLottery replaces an expired round that sold no tickets with a new one
func (r *Runner) RestartLottery(ctx context.Context) error {
	r.header("🔄 ===== RESTART LOTTERY ROUND =====")
	player, key, err := r.connect(ctx)
	if err != nil {
		return err
	}

	currentRoundID, err := r.manager.GetCurrentRoundID(ctx)
	if err != nil {
		return err
	}
	round, err := r.manager.GetLotteryRound(ctx, currentRoundID)
	if err != nil {
		return err
	}

	now := r.chainNow(ctx)
	r.section("🎯 CURRENT LOTTERY ROUND")
	r.printRound(round, now)

	blockers := utils.RestartBlockers(round, now)
	if len(blockers) > 0 {
		r.printBlockers("🚫 CANNOT RESTART LOTTERY", blockers)
		if round.TotalTickets > 0 && !round.Ended {
			r.println("💡 Tip: use end-lottery for a round with tickets sold")
		}
		return nil
	}

	r.printGasEstimate(ctx, player, nil, contract.MethodRestartLottery)

	receipt, err := r.submit(ctx, contract.MethodRestartLottery, func() (*types.Transaction, error) {
		return r.manager.RestartLottery(ctx, key)
	})
	if err != nil {
		return err
	}

	r.println()
	r.println("🎉 LOTTERY RESTARTED SUCCESSFULLY!")
	r.printReceipt(receipt)
	r.printEvents(receipt)

	restarted := network.FindEvent(r.manager.DecodeReceipt(receipt), contract.EventLotteryRestarted)
	if restarted != nil {
		if payload, ok := restarted.Payload.(*data.LotteryRestarted); ok {
			r.printf("🆕 New Round: %d\n", payload.NewRoundID)
		}
	}

	return nil
}

// WithdrawFees sends the accumulated fees to the owner
func (r *Runner) WithdrawFees(ctx context.Context) error {
	r.header("💰 ===== WITHDRAW FEES =====")
	player, key, err := r.connect(ctx)
	if err != nil {
		return err
	}

	err = r.requireOwner(ctx, player)
	if err != nil {
		return err
	}

	fees, err := r.manager.GetAccumulatedFees(ctx)
	if err != nil {
		return err
	}
	r.printf("💰 Accumulated Fees: %s\n", r.amount(fees))
	if fees.Sign() == 0 {
		r.println()
		r.println("No fees to withdraw")
		return nil
	}

	r.printGasEstimate(ctx, player, nil, contract.MethodWithdrawFees)

	receipt, err := r.submit(ctx, contract.MethodWithdrawFees, func() (*types.Transaction, error) {
		return r.manager.WithdrawFees(ctx, key)
	})
	if err != nil {
		return err
	}

	r.println()
	r.println("🎉 FEES WITHDRAWN SUCCESSFULLY!")
	r.printReceipt(receipt)
	r.printEvents(receipt)
	r.refreshBalance(ctx)

	return nil
}

// TransferOwnership hands the contract over to newOwner
func (r *Runner) TransferOwnership(ctx context.Context, newOwner string) error {
	if !common.IsHexAddress(newOwner) {
		return errors.Wrap(ErrInvalidAddress, newOwner)
	}
	target := common.HexToAddress(newOwner)
	if target == (common.Address{}) {
		return errors.Wrap(ErrInvalidAddress, "the new owner can not be the zero address")
	}

	r.header("👑 ===== TRANSFER OWNERSHIP =====")
	player, key, err := r.connect(ctx)
	if err != nil {
		return err
	}

	err = r.requireOwner(ctx, player)
	if err != nil {
		return err
	}
	if target == player {
		r.println()
		r.println("The new owner is already the contract owner")
		return nil
	}

	r.printf("👑 New Owner: %s\n", target.Hex())
	r.printGasEstimate(ctx, player, nil, contract.MethodTransferOwnership, target)

	receipt, err := r.submit(ctx, contract.MethodTransferOwnership, func() (*types.Transaction, error) {
		return r.manager.TransferOwnership(ctx, key, target)
	})
	if err != nil {
		return err
	}

	r.println()
	r.println("🎉 OWNERSHIP TRANSFERRED SUCCESSFULLY!")
	r.printReceipt(receipt)
	r.printEvents(receipt)

	return nil
}

func (r *Runner) requireOwner(ctx context.Context, player common.Address) error {
	owner, err := r.manager.GetOwner(ctx)
	if err != nil {
		return err
	}
	r.printf("👑 Contract Owner: %s\n", owner.Hex())

	if owner != player {
		r.println("❌ Only the contract owner can do this")
		return ErrNotOwner
	}

	return nil
}

func (r *Runner) refreshBalance(ctx context.Context) {
	balance, err := r.session.RefreshBalance(ctx)
	if err != nil {
		log.Debug("can not refresh balance", "error", err)
		return
	}

	r.printf("💰 New Balance: %s\n", r.amount(balance))
}

func (r *Runner) printEvents(receipt *types.Receipt) {
	events := r.manager.DecodeReceipt(receipt)
	if len(events) == 0 {
		return
	}

	r.section("📣 EVENTS")
	for _, event := range events {
		r.printf("%s: %s\n", eventTitles[event.Name], describeEvent(event, r.display.Currency))
	}
}

func describeEvent(event *data.Event, currency string) string {
	switch payload := event.Payload.(type) {
	case *data.TicketsPurchased:
		return fmt.Sprintf("%s bought %d ticket(s) in round %d for %s",
			payload.Player.Hex(), payload.TicketCount, payload.RoundID, utils.FormatAmount(payload.TotalCost, currency))
	case *data.LotteryEnded:
		return fmt.Sprintf("round %d, randomness request %s", payload.RoundID, payload.RequestID.String())
	case *data.WinnerSelected:
		return fmt.Sprintf("round %d won by %s, prize %s",
			payload.RoundID, payload.Winner.Hex(), utils.FormatAmount(payload.Prize, currency))
	case *data.PrizeClaimed:
		return fmt.Sprintf("round %d, %s received %s",
			payload.RoundID, payload.Winner.Hex(), utils.FormatAmount(payload.Amount, currency))
	case *data.LotteryRestarted:
		return fmt.Sprintf("round %d replaced by round %d", payload.OldRoundID, payload.NewRoundID)
	case *data.FeeWithdrawn:
		return fmt.Sprintf("%s sent to %s", utils.FormatAmount(payload.Amount, currency), payload.Owner.Hex())
	case *data.OwnershipTransferred:
		return fmt.Sprintf("%s -> %s", payload.PreviousOwner.Hex(), payload.NewOwner.Hex())
	default:
		return strings.ToLower(event.Name)
	}
}
