package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"kara/karaoke"
	"kara/karaoke/audio"
)

type stubFetcher struct {
	track *karaoke.Track
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (*karaoke.Track, error) {
	return f.track, f.err
}

type stubTranscriber struct {
	transcript *karaoke.Transcript
	err        error
}

func (t *stubTranscriber) Transcribe(_ context.Context, _ string) (*karaoke.Transcript, error) {
	return t.transcript, t.err
}

func testOptions(t *testing.T) Options {
	t.Helper()
	cfg := karaoke.DefaultConfig()
	cfg.Mode = "word"

	transcript := &karaoke.Transcript{
		Words: []karaoke.Word{
			{Text: "go", Start: 0, End: 500 * time.Millisecond},
			{Text: "team", Start: 500 * time.Millisecond, End: time.Second},
		},
	}
	return Options{
		Config:      cfg,
		Engine:      karaoke.NewEngine(cfg),
		Player:      audio.NewMockPlayer(2 * time.Second),
		Fetcher:     &stubFetcher{track: &karaoke.Track{Path: "t.mp3", Title: "Test", Duration: 2 * time.Second}},
		Transcriber: &stubTranscriber{transcript: transcript},
		Query:       "test",
	}
}

func TestSetupPipeline(t *testing.T) {
	m := NewModel(testOptions(t))

	msg := m.setup()()
	started, ok := msg.(karaoke.StartedMsg)
	if !ok {
		t.Fatalf("expected StartedMsg, got %T (%v)", msg, msg)
	}
	if started.Title != "Test" || started.Lines != 1 {
		t.Fatalf("unexpected start message %+v", started)
	}
	if m.opts.Engine.State() != karaoke.StatePlaying {
		t.Fatalf("expected engine playing, got %v", m.opts.Engine.State())
	}
	if !m.opts.Player.IsPlaying() {
		t.Fatal("expected player playing")
	}
}

func TestSetupFetchError(t *testing.T) {
	opts := testOptions(t)
	opts.Fetcher = &stubFetcher{err: errors.New("network down")}
	m := NewModel(opts)

	msg := m.setup()()
	if _, ok := msg.(karaoke.ErrMsg); !ok {
		t.Fatalf("expected ErrMsg, got %T", msg)
	}
}

func TestSetupSkipsTranscriberWithTranscript(t *testing.T) {
	opts := testOptions(t)
	opts.Transcript = &karaoke.Transcript{
		Words: []karaoke.Word{{Text: "hi", Start: 0, End: time.Second}},
	}
	opts.Transcriber = &stubTranscriber{err: errors.New("must not be called")}
	m := NewModel(opts)

	if _, ok := m.setup()().(karaoke.StartedMsg); !ok {
		t.Fatal("expected provided transcript to bypass transcription")
	}
}

func startedModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(testOptions(t))
	msg := m.setup()()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	if model.phase != phasePlaying {
		t.Fatalf("expected playing phase, got %d", model.phase)
	}
	return model
}

func TestPauseResumeKey(t *testing.T) {
	m := startedModel(t)

	space := tea.KeyMsg{Type: tea.KeySpace}
	next, cmd := m.Update(space)
	m = next.(Model)
	if got := m.opts.Engine.State(); got != karaoke.StatePaused {
		t.Fatalf("expected paused, got %v", got)
	}
	if m.opts.Player.IsPlaying() {
		t.Fatal("expected player paused")
	}
	if cmd == nil {
		t.Fatal("expected pause notification command")
	}
	paused, ok := cmd().(karaoke.PausedMsg)
	if !ok {
		t.Fatalf("expected PausedMsg, got %T", cmd())
	}
	next, _ = m.Update(paused)
	m = next.(Model)
	if m.status.state != karaoke.StatePaused {
		t.Fatalf("status bar not updated on pause: %v", m.status.state)
	}

	next, cmd = m.Update(space)
	m = next.(Model)
	if got := m.opts.Engine.State(); got != karaoke.StatePlaying {
		t.Fatalf("expected playing, got %v", got)
	}
	if cmd == nil {
		t.Fatal("expected resume notification command")
	}
	if _, ok := cmd().(karaoke.ResumedMsg); !ok {
		t.Fatalf("expected ResumedMsg, got %T", cmd())
	}
}

func TestOffsetKeys(t *testing.T) {
	m := startedModel(t)

	right := tea.KeyMsg{Type: tea.KeyRight}
	next, _ := m.Update(right)
	m = next.(Model)
	if got := m.opts.Engine.Offset(); got != offsetStep {
		t.Fatalf("expected offset %v, got %v", offsetStep, got)
	}

	left := tea.KeyMsg{Type: tea.KeyLeft}
	next, _ = m.Update(left)
	m = next.(Model)
	next, _ = m.Update(left)
	m = next.(Model)
	if got := m.opts.Engine.Offset(); got != 0 {
		t.Fatalf("expected offset clamped at zero, got %v", got)
	}
}

func TestModeToggleKey(t *testing.T) {
	m := startedModel(t)

	if m.opts.Engine.Mode() != karaoke.ModeWord {
		t.Fatalf("unexpected initial mode %v", m.opts.Engine.Mode())
	}
	toggle := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}}
	next, _ := m.Update(toggle)
	m = next.(Model)
	if m.opts.Engine.Mode() != karaoke.ModeCharacter {
		t.Fatalf("expected character mode, got %v", m.opts.Engine.Mode())
	}
}

func TestQuitKeyStopsSession(t *testing.T) {
	m := startedModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected stop notification command")
	}
	if got := m.opts.Engine.State(); got != karaoke.StateStopped {
		t.Fatalf("expected stopped engine, got %v", got)
	}
	if m.opts.Player.IsPlaying() {
		t.Fatal("expected player stopped")
	}

	stopped, ok := cmd().(karaoke.StoppedMsg)
	if !ok {
		t.Fatalf("expected StoppedMsg, got %T", cmd())
	}
	if stopped.Reason != "user" {
		t.Fatalf("expected user stop reason, got %q", stopped.Reason)
	}
	next, quit := m.Update(stopped)
	m = next.(Model)
	if quit == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg, got %T", quit())
	}
}

func TestTickUpdatesRenderState(t *testing.T) {
	m := startedModel(t)

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected follow-up tick")
	}
	if m.render.LineIndex != 0 {
		t.Fatalf("expected active first line, got %d", m.render.LineIndex)
	}
}

func TestErrMsgQuits(t *testing.T) {
	m := NewModel(testOptions(t))
	next, cmd := m.Update(karaoke.ErrMsg{Err: errors.New("boom")})
	m = next.(Model)
	if m.phase != phaseError || m.Err() == nil {
		t.Fatal("expected error phase")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}
