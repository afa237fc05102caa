package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"kara/karaoke"
)

// StatusBar renders the one-line session summary under the lyrics.
type StatusBar struct {
	state    karaoke.StateType
	title    string
	position time.Duration
	duration time.Duration
	offset   time.Duration
	mode     karaoke.DisplayMode
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{state: karaoke.StateIdle}
}

// SetTrack records the track title and duration.
func (s *StatusBar) SetTrack(title string, duration time.Duration) {
	s.title = title
	s.duration = duration
}

// SetPosition updates the playback position.
func (s *StatusBar) SetPosition(position time.Duration) {
	s.position = position
}

// SetState updates the engine state.
func (s *StatusBar) SetState(state karaoke.StateType) {
	s.state = state
}

// SetOffset updates the displayed timing offset.
func (s *StatusBar) SetOffset(offset time.Duration) {
	s.offset = offset
}

// SetMode updates the displayed highlight mode.
func (s *StatusBar) SetMode(mode karaoke.DisplayMode) {
	s.mode = mode
}

// Render draws the bar at the given width.
func (s *StatusBar) Render(width int) string {
	if width < 10 {
		return ""
	}

	stateStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	left := stateStyle.Render(s.stateIcon()) + " " + truncate.StringWithTail(s.title, uint(width/3), "…")

	timing := fmt.Sprintf("%s / %s", formatDuration(s.position), formatDuration(s.duration))
	details := []string{timing, s.mode.String()}
	if s.offset != 0 {
		details = append(details, fmt.Sprintf("offset %+.1fs", s.offset.Seconds()))
	}
	right := strings.Join(details, " · ")

	bar := s.progressBar(width - lipgloss.Width(left) - lipgloss.Width(right) - 4)
	if bar != "" {
		bar = " " + bar + " "
	} else {
		bar = "  "
	}

	line := left + " " + bar + right
	return truncate.StringWithTail(line, uint(width), "…")
}

// progressBar draws a simple filled/empty bar for the playback position.
func (s *StatusBar) progressBar(width int) string {
	if width < 10 || s.duration <= 0 {
		return ""
	}

	progress := float64(s.position) / float64(s.duration)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filledWidth := int(progress * float64(width))
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}

func (s *StatusBar) stateColor() lipgloss.Color {
	switch s.state {
	case karaoke.StatePlaying:
		return lipgloss.Color("#00FF00")
	case karaoke.StatePaused:
		return lipgloss.Color("#FFFF00")
	case karaoke.StateStopped:
		return lipgloss.Color("#FF8800")
	case karaoke.StateLoaded:
		return lipgloss.Color("#00AAFF")
	default:
		return lipgloss.Color("#888888")
	}
}

func (s *StatusBar) stateIcon() string {
	switch s.state {
	case karaoke.StatePlaying:
		return "▶"
	case karaoke.StatePaused:
		return "⏸"
	case karaoke.StateStopped:
		return "◼"
	case karaoke.StateLoaded:
		return "■"
	default:
		return "○"
	}
}

// formatDuration formats a duration as m:ss for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
