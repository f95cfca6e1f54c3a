package liveshift

import (
	"errors"
	"fmt"
)

// Errors returned by the shifter. Match them with errors.Is; buffer shape
// errors can also be inspected with errors.As and *MismatchError.
var (
	// ErrInvalidParameter indicates a bad construction or parameter value.
	// Nothing is allocated and no engine state changes.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrChannelCountMismatch indicates a buffer set whose length differs
	// from the shifter's channel count.
	ErrChannelCountMismatch = errors.New("channel count mismatch")

	// ErrBlockSizeMismatch indicates a channel buffer whose length differs
	// from the shifter's block size.
	ErrBlockSizeMismatch = errors.New("block size mismatch")

	// ErrOperationInProgress indicates that another call is processing on
	// the same shifter. It is transient; the caller may retry.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrEngine indicates a failure reported by the engine itself.
	ErrEngine = errors.New("engine error")

	// ErrClosed indicates use of a shifter after Close.
	ErrClosed = errors.New("shifter closed")
)

// MismatchError describes a buffer that violates the block contract.
type MismatchError struct {
	// Kind is ErrChannelCountMismatch or ErrBlockSizeMismatch.
	Kind error

	// Buffer is "input" or "output".
	Buffer string

	// Channel is the offending channel for block size mismatches, -1 otherwise.
	Channel int

	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("%v: %s has %d channels, expected %d", e.Kind, e.Buffer, e.Actual, e.Expected)
	}
	return fmt.Sprintf("%v: %s channel %d has %d samples, expected %d",
		e.Kind, e.Buffer, e.Channel, e.Actual, e.Expected)
}

func (e *MismatchError) Unwrap() error {
	return e.Kind
}
