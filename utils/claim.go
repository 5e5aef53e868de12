package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
)

// CanClaim returns true if the address is the selected winner of an ended round whose prize is still unclaimed
func CanClaim(round *data.Round, address common.Address) bool {
	if round == nil || address == (common.Address{}) {
		return false
	}

	return round.Ended && round.HasWinner() && !round.PrizeClaimed &&
		strings.EqualFold(round.Winner.Hex(), address.Hex())
}

// ClaimBlockers lists every reason that prevents the address from claiming the round prize
func ClaimBlockers(round *data.Round, address common.Address) []string {
	blockers := make([]string, 0)
	if !round.HasWinner() {
		blockers = append(blockers, "Winner has not been selected yet")
	}
	if !strings.EqualFold(round.Winner.Hex(), address.Hex()) {
		blockers = append(blockers, "You are not the winner of this round")
	}
	if round.PrizeClaimed {
		blockers = append(blockers, "Prize has already been claimed")
	}
	if round.PrizePool == nil || round.PrizePool.Sign() == 0 {
		blockers = append(blockers, "No prize pool available")
	}
	if !round.Ended {
		blockers = append(blockers, "Lottery round has not ended yet")
	}

	return blockers
}

// EndBlockers lists the reasons the round can not be ended. force skips the end time check.
func EndBlockers(round *data.Round, currentRoundID uint64, now time.Time, force bool) []string {
	blockers := make([]string, 0)
	if round.Ended {
		blockers = append(blockers, "Lottery has already been ended")
	}
	if round.TotalTickets == 0 {
		blockers = append(blockers, "No tickets have been sold")
	}
	remaining := round.EndTime.Sub(now)
	if remaining > 0 && !force {
		blockers = append(blockers, fmt.Sprintf("Lottery period not over (%d minutes remaining)", minutesCeil(remaining)))
	}
	if round.ID < currentRoundID {
		blockers = append(blockers, "Cannot end past lottery rounds")
	}

	return blockers
}

// RestartBlockers lists the reasons an expired round can not be restarted. Only empty rounds restart.
func RestartBlockers(round *data.Round, now time.Time) []string {
	blockers := make([]string, 0)
	if remaining := round.EndTime.Sub(now); remaining > 0 {
		blockers = append(blockers, fmt.Sprintf("Lottery period not over yet (%d minutes remaining)", minutesCeil(remaining)))
	}
	if round.Ended {
		blockers = append(blockers, "Lottery already ended")
	}
	if round.TotalTickets > 0 {
		blockers = append(blockers, fmt.Sprintf("Cannot restart lottery with %d tickets sold", round.TotalTickets))
	}

	return blockers
}

// BuyBlockers lists the reasons tickets can not be bought in the round
func BuyBlockers(round *data.Round, now time.Time) []string {
	blockers := make([]string, 0)
	if round.State != StateOpen {
		blockers = append(blockers, "Lottery is "+StateLabel(round.State))
	}
	if round.Ended {
		blockers = append(blockers, "Lottery has ended")
	}
	if !round.EndTime.After(now) {
		blockers = append(blockers, "Lottery period is over")
	}

	return blockers
}

func minutesCeil(d time.Duration) int64 {
	return int64(math.Ceil(d.Minutes()))
}
