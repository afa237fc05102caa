package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"kara/karaoke"
)

// contextBefore is how many already-sung lines stay visible above the
// active one.
const contextBefore = 2

var (
	pastLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	futureLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	sungWordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF66CC"))
	activeWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#FF3399")).Bold(true)
	upcomingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
)

// RenderLyrics renders the lyric window: recent lines dimmed above, the
// active line highlighted, upcoming lines below.
func RenderLyrics(lines []karaoke.Line, rs karaoke.RenderState, mode karaoke.DisplayMode, width, height int) string {
	if len(lines) == 0 || height < 1 {
		return ""
	}

	active := rs.LineIndex
	start, end := lineWindow(len(lines), active, height)

	rendered := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		var row string
		switch {
		case active == karaoke.NoHighlight || i > active:
			row = futureLineStyle.Render(clip(lines[i].Text(), width))
		case i < active:
			row = pastLineStyle.Render(clip(lines[i].Text(), width))
		default:
			row = renderActiveLine(lines[i], rs, mode, width)
		}
		rendered = append(rendered, row)
	}

	// Pad so the status bar stays put while the window fills.
	for len(rendered) < height {
		rendered = append(rendered, "")
	}
	return strings.Join(rendered, "\n")
}

// lineWindow picks the visible slice, keeping a little context above the
// active line.
func lineWindow(total, active, height int) (int, int) {
	if total <= height {
		return 0, total
	}

	start := 0
	if active != karaoke.NoHighlight {
		start = active - contextBefore
	}
	if start < 0 {
		start = 0
	}
	if start > total-height {
		start = total - height
	}
	return start, start + height
}

// renderActiveLine styles each word of the line by its highlight phase.
func renderActiveLine(line karaoke.Line, rs karaoke.RenderState, mode karaoke.DisplayMode, width int) string {
	if rs.WordIndex == karaoke.NoHighlight {
		return upcomingStyle.Render(clip(line.Text(), width))
	}

	parts := make([]string, 0, len(line.Words))
	for i, w := range line.Words {
		switch {
		case i < rs.WordIndex:
			parts = append(parts, sungWordStyle.Render(w.Text))
		case i > rs.WordIndex:
			parts = append(parts, upcomingStyle.Render(w.Text))
		case mode == karaoke.ModeCharacter:
			parts = append(parts, renderPartialWord(w.Text, rs.CharsRevealed))
		default:
			parts = append(parts, activeWordStyle.Render(w.Text))
		}
	}
	out := strings.Join(parts, " ")
	if runewidth.StringWidth(line.Text()) > width {
		// Styled text cannot be truncated cleanly; fall back to plain.
		return clip(line.Text(), width)
	}
	return out
}

// renderPartialWord splits the active word at the reveal boundary. The
// boundary is in runes, not bytes.
func renderPartialWord(text string, revealed int) string {
	runes := []rune(text)
	if revealed >= len(runes) {
		return activeWordStyle.Render(text)
	}
	if revealed <= 0 {
		return upcomingStyle.Render(text)
	}
	return activeWordStyle.Render(string(runes[:revealed])) + upcomingStyle.Render(string(runes[revealed:]))
}

func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return truncate.StringWithTail(s, uint(width), "…")
}
