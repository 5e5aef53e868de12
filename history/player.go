package history

import (
	"context"
	"math/big"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
)

// PlayerReport walks the last rounds, current round included, and aggregates the player participation.
// Rounds without tickets are left out, rounds that can not be read are reported with their error.
func (hp *HistoryProvider) PlayerReport(ctx context.Context, player common.Address, rounds int) (*data.PlayerReport, error) {
	currentRoundID, err := hp.reader.GetCurrentRoundID(ctx)
	if err != nil {
		return nil, err
	}

	ticketPrice, err := hp.reader.GetTicketPrice(ctx)
	if err != nil {
		return nil, err
	}

	report := &data.PlayerReport{
		Player:          player,
		CurrentRoundID:  currentRoundID,
		Rounds:          make([]*data.PlayerRound, 0),
		TotalSpent:      big.NewInt(0),
		TotalWinnings:   big.NewInt(0),
		UnclaimedPrizes: make([]*data.Round, 0),
	}
	if currentRoundID == 0 {
		return report, nil
	}

	first := uint64(1)
	if rounds > 0 && currentRoundID > uint64(rounds) {
		first = currentRoundID - uint64(rounds) + 1
	}

	for roundID := first; roundID <= currentRoundID; roundID++ {
		playerRound := hp.playerRound(ctx, player, roundID, ticketPrice)
		if playerRound == nil {
			continue
		}
		report.Rounds = append(report.Rounds, playerRound)
		if playerRound.Err != nil {
			continue
		}

		report.RoundsParticipated++
		report.TotalTickets += playerRound.Tickets
		report.TotalSpent.Add(report.TotalSpent, playerRound.Spent)
		if roundID == currentRoundID {
			report.CurrentRoundTickets = playerRound.Tickets
		}

		if playerRound.Result != data.ResultWon {
			continue
		}
		report.RoundsWon++
		report.TotalWinnings.Add(report.TotalWinnings, playerRound.Round.PrizePool)
		if playerRound.Unclaimed {
			report.UnclaimedPrizes = append(report.UnclaimedPrizes, playerRound.Round)
		}
	}

	return report, nil
}

func (hp *HistoryProvider) playerRound(ctx context.Context, player common.Address, roundID uint64, ticketPrice *big.Int) *data.PlayerRound {
	tickets, err := hp.reader.GetPlayerTickets(ctx, player, roundID)
	if err != nil {
		return &data.PlayerRound{Round: &data.Round{ID: roundID}, Err: err}
	}
	if tickets == 0 {
		return nil
	}

	round, err := hp.reader.GetLotteryRound(ctx, roundID)
	if err != nil {
		return &data.PlayerRound{Round: &data.Round{ID: roundID}, Tickets: tickets, Err: err}
	}

	playerRound := &data.PlayerRound{
		Round:     round,
		Tickets:   tickets,
		Spent:     new(big.Int).Mul(ticketPrice, new(big.Int).SetUint64(tickets)),
		WinChance: utils.CalculateWinChance(tickets, round.TotalTickets),
	}

	switch {
	case round.HasWinner() && round.Winner == player:
		playerRound.Result = data.ResultWon
		playerRound.Unclaimed = !round.PrizeClaimed
	case round.HasWinner():
		playerRound.Result = data.ResultLost
	case round.Ended:
		playerRound.Result = data.ResultPending
	default:
		playerRound.Result = data.ResultInProgress
	}

	return playerRound
}

// WinRate returns the percentage of participated rounds the player won
func WinRate(report *data.PlayerReport) float64 {
	if report.RoundsParticipated == 0 {
		return 0
	}

	return float64(report.RoundsWon) / float64(report.RoundsParticipated) * 100
}

// NetResult returns winnings minus spent, negative on loss
func NetResult(report *data.PlayerReport) *big.Int {
	return new(big.Int).Sub(report.TotalWinnings, report.TotalSpent)
}
