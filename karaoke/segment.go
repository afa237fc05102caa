package karaoke

import (
	"strings"
	"time"
)

// Soft caps preventing unbounded single-line runs of fast speech. A line
// breaks at whichever cap is hit first, favoring more, shorter lines.
const (
	DefaultMaxLineDuration = 8 * time.Second
	DefaultMaxLineWords    = 12
)

// Line is a display line: a contiguous, non-empty run of words from the
// original sequence. Lines partition the word sequence.
type Line struct {
	Words []Word
	Start time.Duration // first word's start
	End   time.Duration // last word's end
}

// Text returns the line's words joined by single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Segment groups words into display lines using the default soft caps.
// A new line begins whenever the silence between consecutive words reaches
// gapThreshold. Segmentation is a pure function of its inputs; empty input
// yields no lines.
func Segment(words []Word, gapThreshold time.Duration) []Line {
	return segment(words, gapThreshold, DefaultMaxLineDuration, DefaultMaxLineWords)
}

func segment(words []Word, gapThreshold, maxDuration time.Duration, maxWords int) []Line {
	if len(words) == 0 {
		return nil
	}

	var lines []Line
	current := []Word{words[0]}
	lineStart := words[0].Start

	flush := func() {
		lines = append(lines, Line{
			Words: current,
			Start: current[0].Start,
			End:   current[len(current)-1].End,
		})
	}

	for _, w := range words[1:] {
		gap := w.Start - current[len(current)-1].End
		switch {
		case gap >= gapThreshold:
			flush()
			current = []Word{w}
			lineStart = w.Start
		case len(current) >= maxWords || w.End-lineStart > maxDuration:
			flush()
			current = []Word{w}
			lineStart = w.Start
		default:
			current = append(current, w)
		}
	}
	flush()

	return lines
}
