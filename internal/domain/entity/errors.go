package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddressFormat  = errors.New("invalid address format")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidRecipient      = errors.New("invalid recipient")
	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrResolutionFailed      = errors.New("deposit address resolution failed")
	ErrNotReady              = errors.New("contract or wallet not bound")
	ErrSubmissionRejected    = errors.New("submission rejected")
	ErrFetchFailed           = errors.New("fetch failed")
	ErrTransferPending       = errors.New("a transfer is already pending")
	ErrUnknownNetwork        = errors.New("unknown network")
	ErrChainMismatch         = errors.New("chain id mismatch")
	ErrTicketNotFound        = errors.New("transfer ticket not found")
)

// RecipientError reports the first recipient line that failed to parse.
// Line is 1-based and counts every line of the input, blank ones included.
type RecipientError struct {
	Line  int
	Input string
	Err   error
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("line %d %q: %v: %v", e.Line, e.Input, ErrInvalidRecipient, e.Err)
}

func (e *RecipientError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidRecipient) hold for every RecipientError.
func (e *RecipientError) Is(target error) bool {
	return target == ErrInvalidRecipient
}

// FetchError represents a failed read of one snapshot field.
type FetchError struct {
	Field       string
	NetworkName string
	ChainID     uint64
	Holder      string
	Err         error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %s on %s (chain %d, holder %s): %v", ErrFetchFailed, e.Field, e.NetworkName, e.ChainID, e.Holder, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func parseName(names []string, text []byte, kind string) (int, error) {
	for i, name := range names {
		if name == string(text) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, text)
}
