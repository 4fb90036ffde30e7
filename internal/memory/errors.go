package memory

import (
	"errors"
	"fmt"
)

// ErrPatternNotFound is returned by PatternSearch when no match exists.
// It is not a connection failure.
var ErrPatternNotFound = errors.New("memory: pattern not found")

// ConnectionLostError reports that a memory operation failed and the
// connection to the game process can no longer be trusted.
type ConnectionLostError struct {
	// Op is the failing operation ("read", "write", "search").
	Op string

	// Addr is the absolute address involved, zero for searches.
	Addr Address

	// Len is the number of bytes requested or written.
	Len int

	// Err is the underlying cause, if any.
	Err error
}

func (e *ConnectionLostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("memory: connection lost during %s at %s (%d bytes): %v", e.Op, e.Addr, e.Len, e.Err)
	}
	return fmt.Sprintf("memory: connection lost during %s at %s (%d bytes)", e.Op, e.Addr, e.Len)
}

func (e *ConnectionLostError) Unwrap() error {
	return e.Err
}

// IsConnectionLost reports whether err (or anything it wraps) is a
// *ConnectionLostError.
func IsConnectionLost(err error) bool {
	var cl *ConnectionLostError
	return errors.As(err, &cl)
}
