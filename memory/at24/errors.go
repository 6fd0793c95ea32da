package at24

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	// ErrInvalidConfiguration marks a caller or geometry bug; retrying cannot help.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrTransportFailure marks a bus write or read that errored or came up short.
	ErrTransportFailure = errors.New("transport failure")
	// ErrWriteTimeout marks a device that did not acknowledge within the poll budget.
	ErrWriteTimeout = errors.New("write cycle timeout")
)

// Operation names used in OpError.
const (
	OpEncode     = "encode address"
	OpWriteChunk = "write chunk"
	OpPoll       = "ack poll"
	OpSetAddress = "set read address"
	OpRead       = "read"
)

// OpError describes the step that failed, the word address it targeted, the
// error kind and, when there is one, the underlying cause.
type OpError struct {
	Op   string
	Addr uint32
	Kind error
	Err  error
}

// Error names the kind once: a cause whose text already starts with it is
// printed as is.
func (e *OpError) Error() string {
	msg := fmt.Sprintf("at24: %s at %#02x: ", e.Op, e.Addr)
	switch {
	case e.Err == nil:
		return msg + e.Kind.Error()
	case strings.HasPrefix(e.Err.Error(), e.Kind.Error()):
		return msg + e.Err.Error()
	default:
		return msg + e.Kind.Error() + ": " + e.Err.Error()
	}
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op string, addr uint32, kind error, cause error) *OpError {
	return &OpError{Op: op, Addr: addr, Kind: kind, Err: cause}
}

// IsRetryable reports whether the whole operation may succeed if repeated.
// Configuration errors never are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransportFailure) || errors.Is(err, ErrWriteTimeout)
}
