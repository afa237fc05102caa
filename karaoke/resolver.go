package karaoke

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DisplayMode selects how the active position is reported: whole words, or
// fractional character progress within the active word.
type DisplayMode int

const (
	// ModeWord highlights one word at a time.
	ModeWord DisplayMode = iota
	// ModeCharacter reveals the active word character by character.
	ModeCharacter
)

// String returns the string representation of the mode.
func (m DisplayMode) String() string {
	switch m {
	case ModeWord:
		return "word"
	case ModeCharacter:
		return "character"
	default:
		return "unknown"
	}
}

// ParseDisplayMode parses a mode name as found in config files and flags.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "word":
		return ModeWord, nil
	case "character", "char":
		return ModeCharacter, nil
	default:
		return ModeWord, fmt.Errorf("invalid display mode %q: must be word or character", s)
	}
}

// NoHighlight marks "nothing highlighted" in a RenderState index field.
const NoHighlight = -1

// RenderState is the per-sample output consumed by the presentation
// layer. It is transient: produced on every sample, never stored.
type RenderState struct {
	LineIndex     int    // active line, or NoHighlight during pre-roll / after the end
	WordIndex     int    // active word within the line, or NoHighlight
	CharsRevealed int    // revealed runes of the active word (character mode)
	LineText      string // text of the active line
	LineCrossed   bool   // true on the first sample after the line index changed
	Finished      bool   // true once the trailing-silence window has elapsed
}

// Resolve maps an instant to the active line, word, and character progress.
// It is a pure function of its inputs and holds no state; LineCrossed is
// left false because only the caller knows the previous sample.
//
// The active line is the last line starting at or before t, which keeps
// the previous highlight during gaps between lines rather than flickering
// to nothing. Once t passes the final line's end by more than trailing,
// the track is effectively finished and nothing is highlighted.
func Resolve(lines []Line, t time.Duration, mode DisplayMode, trailing time.Duration) RenderState {
	none := RenderState{LineIndex: NoHighlight, WordIndex: NoHighlight}
	if len(lines) == 0 {
		return none
	}

	// Last line with Start <= t.
	idx := sort.Search(len(lines), func(i int) bool { return lines[i].Start > t }) - 1
	if idx < 0 {
		return none // pre-roll
	}
	if idx == len(lines)-1 && t > lines[idx].End+trailing {
		none.Finished = true
		return none
	}

	line := lines[idx]
	rs := RenderState{
		LineIndex: idx,
		WordIndex: 0,
		LineText:  line.Text(),
	}

	// Last word with Start <= t. During mid-line pauses the previous word
	// stays highlighted.
	for i := len(line.Words) - 1; i >= 0; i-- {
		if line.Words[i].Start <= t {
			rs.WordIndex = i
			break
		}
	}

	if mode == ModeCharacter {
		rs.CharsRevealed = revealedChars(line.Words[rs.WordIndex], t)
	}
	return rs
}

// revealedChars computes how many runes of the word are revealed at t,
// interpolating linearly across the word's spoken interval. Zero-duration
// words are fully revealed the moment they start.
func revealedChars(w Word, t time.Duration) int {
	runes := len([]rune(w.Text))
	if t < w.Start {
		return 0
	}
	if w.End <= w.Start || t >= w.End {
		return runes
	}
	p := float64(t-w.Start) / float64(w.End-w.Start)
	return int(p * float64(runes))
}
