package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during a tick.
//
// Runtime errors include:
//   - Connection lost: a memory read or write failed; the connection was torn down
//   - Pattern not found: an optional feature scan failed
//   - Unknown fact: the session delivered a fact absent from the catalog
//   - Inconsistent save: save data contradicts the catalog
//   - Session unavailable: the fact store could not be read or written
//
// RuntimeError includes structured fields for diagnostics and recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ConnID identifies the affected connection, if any.
	ConnID string

	// Seq is the tick that failed.
	Seq int64

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeConnectionLost indicates a memory interface failure.
	ErrCodeConnectionLost RuntimeErrorCode = "CONNECTION_LOST"

	// ErrCodePatternNotFound indicates a feature-detection scan failed.
	ErrCodePatternNotFound RuntimeErrorCode = "PATTERN_NOT_FOUND"

	// ErrCodeUnknownFact indicates a fact missing from the catalog.
	ErrCodeUnknownFact RuntimeErrorCode = "UNKNOWN_FACT"

	// ErrCodeInconsistentSave indicates save data the catalog cannot explain.
	ErrCodeInconsistentSave RuntimeErrorCode = "INCONSISTENT_SAVE"

	// ErrCodeSessionUnavailable indicates a fact store failure.
	ErrCodeSessionUnavailable RuntimeErrorCode = "SESSION_UNAVAILABLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ConnID != "" {
		msg = fmt.Sprintf("%s (conn=%s, seq=%d)", msg, e.ConnID, e.Seq)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsConnectionLost returns true if the tick tore the connection down.
// Uses errors.As to handle wrapped errors.
func IsConnectionLost(err error) bool {
	return hasCode(err, ErrCodeConnectionLost)
}

// IsSessionError returns true if the fact store failed.
// Uses errors.As to handle wrapped errors.
func IsSessionError(err error) bool {
	return hasCode(err, ErrCodeSessionUnavailable)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewConnectionLostError creates a RuntimeError for a failed memory phase.
func NewConnectionLostError(connID string, seq int64, phase string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeConnectionLost,
		Message: "memory interface failed during " + phase,
		ConnID:  connID,
		Seq:     seq,
		Details: map[string]string{"phase": phase},
		Err:     cause,
	}
}

// NewSessionError creates a RuntimeError for a failed fact store call.
func NewSessionError(connID string, seq int64, op string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeSessionUnavailable,
		Message: "fact store " + op + " failed",
		ConnID:  connID,
		Seq:     seq,
		Details: map[string]string{"op": op},
		Err:     cause,
	}
}
