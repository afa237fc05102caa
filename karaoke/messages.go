package karaoke

import "time"

// Bubble Tea messages emitted around session lifecycle transitions. The
// presentation layer polls Sample for highlight state; these messages only
// carry the coarser started/paused/resumed/stopped/finished notifications.

// StartedMsg indicates playback has started.
type StartedMsg struct {
	Title    string
	Lines    int
	Duration time.Duration
}

// PausedMsg indicates playback has been paused.
type PausedMsg struct {
	Position time.Duration
}

// ResumedMsg indicates playback has resumed.
type ResumedMsg struct {
	Position time.Duration
}

// StoppedMsg indicates the session was discarded.
type StoppedMsg struct {
	Reason string // "user" or "finished"
}

// FinishedMsg indicates the trailing-silence window elapsed after the
// final line.
type FinishedMsg struct{}

// ErrMsg carries a collaborator error to the UI.
type ErrMsg struct {
	Err error
}

// Error implements the error interface.
func (m ErrMsg) Error() string { return m.Err.Error() }
