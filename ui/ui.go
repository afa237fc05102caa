// Package ui is the terminal front end: it drives the session pipeline
// (fetch, transcribe, play) and renders synced lyrics.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"kara/karaoke"
)

type phase int

const (
	phaseLoading phase = iota
	phasePlaying
	phaseDone
	phaseError
)

// offsetStep is how far the arrow keys nudge the timing offset.
const offsetStep = 100 * time.Millisecond

// Options carries everything the model needs. Transcript, when set,
// bypasses transcription.
type Options struct {
	Config      karaoke.Config
	Engine      *karaoke.Engine
	Player      karaoke.Player
	Fetcher     karaoke.Fetcher
	Transcriber karaoke.Transcriber
	Query       string
	Transcript  *karaoke.Transcript
}

type keyMap struct {
	PlayPause   key.Binding
	OffsetBack  key.Binding
	OffsetAhead key.Binding
	Mode        key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause/resume"),
		),
		OffsetBack: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "lyrics earlier"),
		),
		OffsetAhead: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "lyrics later"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "word/char mode"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("up", "+"),
			key.WithHelp("↑", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("down", "-"),
			key.WithHelp("↓", "volume down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

type tickMsg time.Time

// Model is the bubbletea model for a karaoke session.
type Model struct {
	opts Options
	keys keyMap

	phase   phase
	render  karaoke.RenderState
	status  *StatusBar
	spinner spinner.Model
	stage   string
	volume  float64
	err     error

	width  int
	height int
}

// NewModel builds the session model. The engine must be freshly created;
// the model drives its whole lifecycle.
func NewModel(opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF66CC"))

	return Model{
		opts:    opts,
		keys:    defaultKeyMap(),
		phase:   phaseLoading,
		status:  NewStatusBar(),
		spinner: sp,
		stage:   "preparing session",
		volume:  opts.Config.Volume,
	}
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.setup())
}

// setup runs the blocking pipeline off the update loop and reports back
// with a lifecycle message.
func (m Model) setup() tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		ctx := context.Background()

		track, err := opts.Fetcher.Fetch(ctx, opts.Query)
		if err != nil {
			return karaoke.ErrMsg{Err: err}
		}

		transcript := opts.Transcript
		if transcript == nil {
			transcript, err = opts.Transcriber.Transcribe(ctx, track.Path)
			if err != nil {
				return karaoke.ErrMsg{Err: err}
			}
		}

		if err := opts.Player.Load(ctx, track.Path); err != nil {
			return karaoke.ErrMsg{Err: err}
		}
		if track.Duration == 0 {
			track.Duration = opts.Player.Duration()
		}
		opts.Player.SetVolume(opts.Config.Volume)

		opts.Engine.OnStateChange(func(s karaoke.StateType) {
			log.Debug("session state", "state", s)
		})
		opts.Engine.OnLineChange(func(i int) {
			log.Debug("line crossed", "line", i)
		})

		if err := opts.Engine.Load(transcript.Words); err != nil {
			return karaoke.ErrMsg{Err: err}
		}
		if err := opts.Engine.Start(); err != nil {
			return karaoke.ErrMsg{Err: err}
		}
		if err := opts.Player.Play(); err != nil {
			opts.Engine.Stop()
			return karaoke.ErrMsg{Err: err}
		}

		return karaoke.StartedMsg{
			Title:    track.Title,
			Lines:    len(opts.Engine.Lines()),
			Duration: track.Duration,
		}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Config.FrameInterval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.phase != phaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case karaoke.StartedMsg:
		m.phase = phasePlaying
		m.status.SetTrack(msg.Title, msg.Duration)
		m.status.SetMode(m.opts.Engine.Mode())
		log.Debug("session started", "title", msg.Title, "lines", msg.Lines)
		return m, m.tick()

	case karaoke.PausedMsg:
		m.status.SetState(m.opts.Engine.State())
		log.Debug("playback paused", "position", msg.Position)
		return m, nil

	case karaoke.ResumedMsg:
		m.status.SetState(m.opts.Engine.State())
		log.Debug("playback resumed", "position", msg.Position)
		return m, nil

	case karaoke.StoppedMsg:
		log.Debug("session stopped", "reason", msg.Reason)
		return m, tea.Quit

	case karaoke.ErrMsg:
		m.phase = phaseError
		m.err = msg.Err
		log.Error("session failed", "error", msg.Err)
		return m, tea.Quit

	case karaoke.FinishedMsg:
		m.phase = phaseDone
		return m, tea.Quit

	case tickMsg:
		return m.handleTick()
	}

	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.phase != phasePlaying {
		return m, nil
	}

	engine := m.opts.Engine
	player := m.opts.Player

	if player.IsPlaying() {
		// A drift-exceeded result is already logged by the engine, which
		// keeps its own estimate; playback continues either way.
		_ = engine.Reconcile(player.Position())
	}

	rs, err := engine.Sample()
	if err != nil {
		// Sampling can race a stop during shutdown.
		return m, m.tick()
	}
	m.render = rs
	m.status.SetPosition(player.Position())
	m.status.SetState(engine.State())
	m.status.SetOffset(engine.Offset())

	if rs.Finished {
		return m, tea.Batch(
			m.teardown("finished"),
			func() tea.Msg { return karaoke.FinishedMsg{} },
		)
	}
	return m, m.tick()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.phase == phasePlaying {
			m.phase = phaseDone
			return m, m.teardown("user")
		}
		m.phase = phaseDone
		return m, tea.Quit

	case key.Matches(msg, m.keys.PlayPause):
		if m.phase != phasePlaying {
			return m, nil
		}
		engine := m.opts.Engine
		player := m.opts.Player
		if engine.State() == karaoke.StatePaused {
			if err := engine.Resume(); err != nil {
				return m, nil
			}
			player.Resume()
			return m, func() tea.Msg {
				return karaoke.ResumedMsg{Position: player.Position()}
			}
		}
		if err := engine.Pause(); err != nil {
			return m, nil
		}
		player.Pause()
		return m, func() tea.Msg {
			return karaoke.PausedMsg{Position: player.Position()}
		}

	case key.Matches(msg, m.keys.OffsetBack):
		m.nudgeOffset(-offsetStep)
		return m, nil

	case key.Matches(msg, m.keys.OffsetAhead):
		m.nudgeOffset(offsetStep)
		return m, nil

	case key.Matches(msg, m.keys.Mode):
		if m.phase != phasePlaying {
			return m, nil
		}
		engine := m.opts.Engine
		next := karaoke.ModeWord
		if engine.Mode() == karaoke.ModeWord {
			next = karaoke.ModeCharacter
		}
		engine.SetMode(next)
		m.status.SetMode(next)
		return m, nil

	case key.Matches(msg, m.keys.VolumeUp):
		m.volume += 0.1
		if m.volume > 2 {
			m.volume = 2
		}
		m.opts.Player.SetVolume(m.volume)
		return m, nil

	case key.Matches(msg, m.keys.VolumeDown):
		m.volume -= 0.1
		if m.volume < 0 {
			m.volume = 0
		}
		m.opts.Player.SetVolume(m.volume)
		return m, nil
	}

	return m, nil
}

// nudgeOffset shifts highlight timing. The engine clamps at zero.
func (m *Model) nudgeOffset(delta time.Duration) {
	if m.phase != phasePlaying {
		return
	}
	engine := m.opts.Engine
	engine.SetOffset(engine.Offset() + delta)
	m.status.SetOffset(engine.Offset())
}

// teardown stops the session and reports why it ended.
func (m Model) teardown(reason string) tea.Cmd {
	m.opts.Engine.Stop()
	m.opts.Player.Stop()
	return func() tea.Msg {
		return karaoke.StoppedMsg{Reason: reason}
	}
}

func (m Model) View() string {
	switch m.phase {
	case phaseLoading:
		return "\n  " + m.spinner.View() + m.stage + "\n"

	case phaseError:
		if m.err == nil {
			return ""
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
		return style.Render("error: "+m.err.Error()) + "\n"

	case phaseDone:
		return ""
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	height := m.height
	if height <= 0 {
		height = 24
	}

	// The status bar and help line take the bottom rows.
	lyricsHeight := height - 3
	if lyricsHeight < 1 {
		lyricsHeight = 1
	}

	lyrics := RenderLyrics(m.opts.Engine.Lines(), m.render, m.opts.Engine.Mode(), width, lyricsHeight)
	status := m.status.Render(width)
	help := helpStyle.Render("space pause · ←/→ nudge · m mode · ↑/↓ volume · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, lyrics, status, help)
}

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
