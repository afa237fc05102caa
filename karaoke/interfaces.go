package karaoke

import (
	"context"
	"time"
)

// Fetcher turns a search query or URL into a local audio asset.
type Fetcher interface {
	// Fetch acquires audio for the query and returns the local track.
	Fetch(ctx context.Context, query string) (*Track, error)
}

// Transcriber produces word-level timestamps for a local audio file.
type Transcriber interface {
	// Transcribe returns the transcript with non-decreasing word starts.
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
}

// Player is the audio playback collaborator. The engine never drives it
// directly; the presentation layer issues play/pause/stop in lockstep with
// engine transitions and feeds Position back through Engine.Reconcile.
type Player interface {
	// Load prepares a local audio file for playback.
	Load(ctx context.Context, path string) error

	// Play starts playback from the beginning.
	Play() error

	// Pause temporarily stops playback.
	Pause() error

	// Resume continues playback from the paused position.
	Resume() error

	// Stop halts playback and discards the loaded audio.
	Stop() error

	// Position returns the current playback position.
	Position() time.Duration

	// Duration returns the duration of the loaded audio.
	Duration() time.Duration

	// IsPlaying returns true while audio is audibly playing.
	IsPlaying() bool

	// SetVolume sets the playback volume (0.0 to 2.0).
	SetVolume(volume float64)

	// Close releases audio resources.
	Close() error
}
