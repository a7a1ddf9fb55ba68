package drone

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no reply arrives within the deadline.
	// It is an expected outcome, retryable by the caller; the Channel never
	// retries on its own.
	ErrTimeout = errors.New("no reply within deadline")

	// ErrNotConnected is returned when an operation requires an established link.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed is returned by transport receives after Close.
	ErrClosed = errors.New("transport closed")

	// ErrAlreadyConnected is returned by Connect when a link is already up
	// or an attempt is in progress.
	ErrAlreadyConnected = errors.New("connection already established or in progress")

	// ErrConnectionLost marks a link that died while previously connected.
	ErrConnectionLost = errors.New("connection lost")
)

// TransportError wraps a socket-level failure. It is fatal to the current
// connection attempt.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectionError indicates the vehicle replied but without acknowledging.
// It is surfaced to the caller, never retried.
type RejectionError struct {
	Verb  string
	Reply string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("command %q rejected by vehicle: %q", e.Verb, e.Reply)
}

// PreconditionError indicates validation failed before any network I/O.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

// IsPrecondition reports whether err is a validation failure that never
// reached the network.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsRejection reports whether err is a protocol-level rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
