package poller

import (
	"github.com/DrDelphi/LuckyOneBot/contract"
	"github.com/pkg/errors"
)

// Refresh reasons carried by the published updates
const (
	ReasonStart    = "start"
	ReasonInterval = "interval"
	ReasonManual   = "manual"
	ReasonEvent    = "event"
)

const (
	maxQueuedEvents   = 1024
	eventsBuffer      = 64
	defaultMaxRetries = 3
)

var invalidatingEvents = map[string]struct{}{
	contract.EventTicketsPurchased: {},
	contract.EventLotteryEnded:     {},
	contract.EventWinnerSelected:   {},
	contract.EventPrizeClaimed:     {},
	contract.EventLotteryRestarted: {},
}

var (
	ErrNilReader      = errors.New("nil lottery reader")
	ErrInvalidPeriod  = errors.New("invalid refresh interval")
	ErrAlreadyStarted = errors.New("poller already started")
)
