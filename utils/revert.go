package utils

import (
	"strings"
)

type revertHint struct {
	match   string
	message string
	tip     string
}

var revertHints = []revertHint{
	{"user rejected", "Transaction was rejected", "Approve the transaction in your wallet to continue"},
	{"insufficient funds", "Insufficient balance for this transaction", "Top up the wallet to cover the ticket cost and gas"},
	{"Incorrect payment amount", "Incorrect payment amount", "Make sure you're paying exactly the right amount"},
	{"Invalid ticket count", "Invalid ticket count", "Ticket count must be between 1 and 100"},
	{"Lottery has ended", "This lottery round has ended", "This lottery round has ended, try the current round"},
	{"Lottery not open", "This lottery round is not open", "Wait for the next round to start"},
	{"Not the winner", "You are not the winner of this round", "Only the winner can claim the prize"},
	{"Prize already claimed", "Prize has already been claimed", "This prize has already been claimed"},
	{"Winner not selected yet", "Winner has not been selected yet", "Wait for Chainlink VRF to select the winner"},
	{"Lottery period not over", "Lottery period not over", "Wait for the lottery period to end or use --force for testing"},
	{"Lottery already ended", "Lottery already ended", "This lottery has already been ended"},
	{"No tickets sold", "No tickets sold", "At least one ticket must be sold before ending"},
	{"Not the contract owner", "Not the contract owner", "Only the contract owner can do this"},
	{"No fees to withdraw", "No fees to withdraw", "No fees have been accumulated yet"},
}

// FriendlyError maps a provider or revert error to a short user facing message
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	if hint := findRevertHint(err.Error()); hint != nil {
		return hint.message
	}

	return err.Error()
}

// RevertTip returns an actionable tip for a known revert reason, or an empty string
func RevertTip(err error) string {
	if err == nil {
		return ""
	}

	if hint := findRevertHint(err.Error()); hint != nil {
		return hint.tip
	}

	return ""
}

func findRevertHint(msg string) *revertHint {
	lower := strings.ToLower(msg)
	for idx := range revertHints {
		if strings.Contains(lower, strings.ToLower(revertHints[idx].match)) {
			return &revertHints[idx]
		}
	}

	return nil
}
