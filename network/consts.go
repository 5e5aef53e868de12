package network

import "github.com/pkg/errors"

var (
	errEmptyResponse   = errors.New("empty response")
	errInvalidResponse = errors.New("invalid result")
	errUnknownEvent    = errors.New("unknown event")
	errNoTopics        = errors.New("log without topics")

	// ErrTxFailed is returned when a mined transaction has a failed status
	ErrTxFailed = errors.New("transaction failed")
	// ErrNilBackend is returned when the manager is created without a chain backend
	ErrNilBackend = errors.New("nil chain backend")
	// ErrInvalidContractAddress is returned for a zero lottery address
	ErrInvalidContractAddress = errors.New("invalid lottery contract address")
)
