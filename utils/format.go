package utils

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/shopspring/decimal"
)

const weiExponent = 18

var minDisplayedPrize = decimal.New(1, -3)

// WeiToDecimal converts a wei amount into its ether value
func WeiToDecimal(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(wei, -weiExponent)
}

// FormatEther renders a wei amount in ether with a fixed number of decimals. Zero is rendered as "0".
func FormatEther(wei *big.Int, decimals int32) string {
	value := WeiToDecimal(wei)
	if value.IsZero() {
		return "0"
	}

	return value.StringFixed(decimals)
}

// FormatEtherFull renders a wei amount in ether without losing precision
func FormatEtherFull(wei *big.Int) string {
	return WeiToDecimal(wei).String()
}

// ParseEther converts an ether decimal string into wei. Digits beyond 18 decimals are truncated.
func ParseEther(value string) (*big.Int, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	return amount.Shift(weiExponent).BigInt(), nil
}

// FormatAmount renders a wei amount with the display precision and the currency symbol
func FormatAmount(wei *big.Int, currency string) string {
	return FormatEther(wei, DisplayDecimals) + " " + currency
}

func FormatPrizePool(wei *big.Int, currency string) string {
	value := WeiToDecimal(wei)
	if value.IsZero() {
		return "0 " + currency
	}
	if value.LessThan(minDisplayedPrize) {
		return "<0.001 " + currency
	}

	return FormatAmount(wei, currency)
}

// CalculateWinChance returns the winning probability in percent, rounded to 2 decimals
func CalculateWinChance(userTickets uint64, totalTickets uint64) float64 {
	if userTickets == 0 || totalTickets == 0 {
		return 0
	}

	chance := float64(userTickets) / float64(totalTickets) * 100
	return math.Round(chance*100) / 100
}

func FormatWinChance(userTickets uint64, totalTickets uint64) string {
	if userTickets == 0 || totalTickets == 0 {
		return "0"
	}

	return strconv.FormatFloat(CalculateWinChance(userTickets, totalTickets), 'f', 2, 64)
}

// StateLabel is the single source for round state names used by every renderer
func StateLabel(state uint8) string {
	if int(state) < len(LotteryState) {
		return LotteryState[state]
	}

	return "Unknown"
}

func StateBadge(state uint8) string {
	if int(state) < len(StateIcons) {
		return StateIcons[state] + " " + StateLabel(state)
	}

	return "⚪ " + StateLabel(state)
}

func ComputeTimeRemaining(end time.Time, now time.Time) data.TimeRemaining {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return data.TimeRemaining{Expired: true}
	}

	secs := int64(remaining / time.Second)
	return data.TimeRemaining{
		Total:   remaining,
		Days:    secs / 86400,
		Hours:   (secs % 86400) / 3600,
		Minutes: (secs % 3600) / 60,
		Seconds: secs % 60,
	}
}

func FormatTimeRemaining(tr data.TimeRemaining) string {
	switch {
	case tr.Expired:
		return "Expired"
	case tr.Days > 0:
		return fmt.Sprintf("%dd %dh %dm", tr.Days, tr.Hours, tr.Minutes)
	case tr.Hours > 0:
		return fmt.Sprintf("%dh %dm %ds", tr.Hours, tr.Minutes, tr.Seconds)
	case tr.Minutes > 0:
		return fmt.Sprintf("%dm %ds", tr.Minutes, tr.Seconds)
	default:
		return fmt.Sprintf("%ds", tr.Seconds)
	}
}

func RelativeTime(t time.Time, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return plural(days, "day") + " ago"
	case hours > 0:
		return plural(hours, "hour") + " ago"
	case minutes > 0:
		return plural(minutes, "minute") + " ago"
	default:
		return plural(seconds, "second") + " ago"
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}

	return fmt.Sprintf("%d %ss", n, unit)
}

func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
