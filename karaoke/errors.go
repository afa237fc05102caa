package karaoke

import (
	"errors"
	"fmt"
)

// Common errors for the synchronization core.
var (
	// Input errors, raised at Load time.
	ErrEmptyTranscript = errors.New("transcript contains no words")
	ErrInvalidWords    = errors.New("invalid word timings")
	ErrInvalidGap      = errors.New("gap threshold must be positive")

	// State errors, raised when an operation is invoked out of sequence.
	ErrNotLoaded       = errors.New("no transcript loaded")
	ErrInvalidState    = errors.New("operation not valid in current state")
	ErrClockNotStarted = errors.New("clock has not been started")

	// Drift warning, non-fatal. The clock keeps its own estimate when the
	// reported audio position diverges past the ceiling.
	ErrDriftExceeded = errors.New("audio position drift exceeds ceiling")
)

// Error wraps an underlying error with the component and action that
// produced it, so collaborator failures stay diagnosable after crossing
// package boundaries.
type Error struct {
	Err       error
	Component string // "engine", "clock", "fetch", "transcribe", "audio"
	Action    string // operation being performed
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Component, e.Action)
	}
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with component and action context.
func NewError(err error, component, action string) *Error {
	return &Error{Err: err, Component: component, Action: action}
}
