// Package karaoke implements the synchronization core of the player: it
// turns word-level timestamps into display lines, tracks a playback clock
// reconciled against the audio subsystem, and resolves which word (or
// character) should be highlighted at any instant.
package karaoke

import (
	"fmt"
	"time"
)

// Word is a single transcribed word with its spoken interval. Words are
// immutable once received; timestamps come from the transcriber in
// non-decreasing start order.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Duration returns the spoken duration of the word.
func (w Word) Duration() time.Duration {
	return w.End - w.Start
}

// ValidateWords checks the invariants required before a transcript can be
// loaded: at least one word, no negative timestamps, end never before
// start, and non-decreasing start order. Zero-duration words are allowed;
// the resolver treats them as instantaneously spoken.
func ValidateWords(words []Word) error {
	if len(words) == 0 {
		return ErrEmptyTranscript
	}
	for i, w := range words {
		if w.Start < 0 {
			return fmt.Errorf("%w: word %d %q has negative start %v", ErrInvalidWords, i, w.Text, w.Start)
		}
		if w.End < w.Start {
			return fmt.Errorf("%w: word %d %q ends before it starts (%v > %v)", ErrInvalidWords, i, w.Text, w.Start, w.End)
		}
		if i > 0 && w.Start < words[i-1].Start {
			return fmt.Errorf("%w: word %d %q starts before word %d", ErrInvalidWords, i, w.Text, i-1)
		}
	}
	return nil
}

// Transcript is the output of the transcription collaborator.
type Transcript struct {
	Words    []Word
	Text     string
	Language string
	Model    string
}

// Track is a locally available audio asset produced by the media
// acquisition collaborator.
type Track struct {
	Path     string
	Title    string
	Duration time.Duration
}
