package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind     = errors.New("unknown command kind")
	ErrInvalidValue    = errors.New("invalid command value")
	ErrMailboxOverflow = errors.New("mailbox overflow")
	ErrQueueOverflow   = errors.New("pending queue overflow")
	ErrDeadlineExpired = errors.New("command deadline expired")
	ErrFieldConflict   = errors.New("consolidation field conflict")
	ErrPayloadOverflow = errors.New("payload exceeds transport limit")
	ErrNoPayload       = errors.New("command carries no device payload")
	ErrGuardDenied     = errors.New("transport guard denied attempt")
	ErrLinkDown        = errors.New("link unavailable")
	ErrNotConnected    = errors.New("transport not connected")
	ErrTransport       = errors.New("transport failure")
)

// IsConsolidationFailure reports whether err means the batch should be
// retried one command at a time instead of counting as a transport failure.
func IsConsolidationFailure(err error) bool {
	return errors.Is(err, ErrFieldConflict) || errors.Is(err, ErrPayloadOverflow)
}

// TransportError is returned by sinks for timeouts, connect failures and
// non-success responses. It always matches ErrTransport.
type TransportError struct {
	Sink       string
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Sink, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Sink, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
