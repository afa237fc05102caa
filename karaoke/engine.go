package karaoke

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Engine orchestrates one playback session: it owns the segmented lines,
// the playback clock, the display mode and the timing offset, and turns
// every Sample call into a RenderState for the presentation layer.
//
// Sample is safe to call from the render loop while Reconcile is invoked
// from whatever goroutine observes the audio position.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	clock   *Clock
	machine *StateMachine

	// Session state, owned exclusively by the engine. Created on Load,
	// discarded on Stop.
	lines    []Line
	mode     DisplayMode
	offset   time.Duration
	lastLine int
	finished bool

	// Lifecycle callbacks. Invoked synchronously with the engine lock
	// held; they must not call back into the engine.
	onState    func(StateType)
	onLine     func(int)
	onFinished func()
}

// NewEngine creates an engine with the given configuration. The
// configuration should already be validated.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cfg:      cfg,
		clock:    NewClock(cfg.DriftTolerance, cfg.DriftCeiling, cfg.CorrectionWindow),
		machine:  NewStateMachine(),
		offset:   cfg.TimingOffset,
		lastLine: NoHighlight,
	}
	for _, s := range []StateType{StateLoaded, StatePlaying, StatePaused, StateStopped} {
		state := s
		e.machine.OnEnter(state, func() {
			log.Debug("session state", "state", state)
		})
	}
	return e
}

// Load validates and segments a transcript, replacing any previous
// session. Loading mid-playback stops the current session first.
func (e *Engine) Load(words []Word) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ValidateWords(words); err != nil {
		return NewError(err, "engine", "load")
	}
	if e.cfg.GapThreshold <= 0 {
		return NewError(ErrInvalidGap, "engine", "load")
	}

	if e.machine.Current().IsActive() {
		e.clock.Stop()
	}
	if !e.machine.Transition(StateLoaded) {
		return NewError(fmt.Errorf("%w: cannot load from %s", ErrInvalidState, e.machine.Current()), "engine", "load")
	}

	e.lines = segment(words, e.cfg.GapThreshold, e.cfg.MaxLineDuration, e.cfg.MaxLineWords)
	mode, err := e.cfg.DisplayMode()
	if err != nil {
		return NewError(err, "engine", "load")
	}
	e.mode = mode
	e.offset = e.cfg.TimingOffset
	e.lastLine = NoHighlight
	e.finished = false

	log.Debug("transcript loaded", "words", len(words), "lines", len(e.lines))
	e.notifyState(StateLoaded)
	return nil
}

// Start begins playback timing. Valid only from Loaded; starting from
// Idle or Stopped without a (re)load is an InvalidState error.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() == StateIdle {
		return NewError(ErrNotLoaded, "engine", "start")
	}
	if !e.machine.Transition(StatePlaying) {
		return NewError(fmt.Errorf("%w: cannot start from %s", ErrInvalidState, e.machine.Current()), "engine", "start")
	}
	e.clock.Start()
	e.lastLine = NoHighlight
	e.finished = false
	e.notifyState(StatePlaying)
	return nil
}

// Pause freezes the session clock. Pausing while already paused is a no-op.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() == StatePaused {
		return nil
	}
	if !e.machine.Transition(StatePaused) {
		return NewError(fmt.Errorf("%w: cannot pause from %s", ErrInvalidState, e.machine.Current()), "engine", "pause")
	}
	e.clock.Pause()
	e.notifyState(StatePaused)
	return nil
}

// Resume unfreezes the session clock. Resuming while playing is a no-op.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() == StatePlaying {
		return nil
	}
	if e.machine.Current() != StatePaused || !e.machine.Transition(StatePlaying) {
		return NewError(fmt.Errorf("%w: cannot resume from %s", ErrInvalidState, e.machine.Current()), "engine", "resume")
	}
	e.clock.Resume()
	e.notifyState(StatePlaying)
	return nil
}

// Stop discards the session immediately and synchronously. There is no
// pending asynchronous work to await.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.Transition(StateStopped) {
		return NewError(fmt.Errorf("%w: cannot stop from %s", ErrInvalidState, e.machine.Current()), "engine", "stop")
	}
	e.clock.Stop()
	e.lastLine = NoHighlight
	e.finished = false
	e.notifyState(StateStopped)
	return nil
}

// SetOffset adjusts the timing offset applied to every subsequent sample.
// Takes effect on the next Sample call; no restart required, and setting
// the same offset twice is indistinguishable from setting it once.
func (e *Engine) SetOffset(offset time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = offset
}

// Offset returns the current timing offset.
func (e *Engine) Offset() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// SetMode switches the display mode for subsequent samples.
func (e *Engine) SetMode(mode DisplayMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Mode returns the current display mode.
func (e *Engine) Mode() DisplayMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// State returns the current session state.
func (e *Engine) State() StateType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Current()
}

// Lines returns the segmented lines of the current session.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Line, len(e.lines))
	copy(out, e.lines)
	return out
}

// Sample computes what should be highlighted right now. Only meaningful
// while Playing or Paused; a paused session keeps returning the frozen
// position. The returned state's LineCrossed flag is set on the first
// sample after the active line index changed.
func (e *Engine) Sample() (RenderState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.Current().IsActive() {
		return RenderState{}, NewError(fmt.Errorf("%w: cannot sample in %s", ErrInvalidState, e.machine.Current()), "engine", "sample")
	}

	now, err := e.clock.Now()
	if err != nil {
		return RenderState{}, NewError(err, "engine", "sample")
	}
	t := now + e.offset
	if t < 0 {
		t = 0
	}

	rs := Resolve(e.lines, t, e.mode, e.cfg.TrailingSilence)
	if rs.LineIndex != e.lastLine {
		rs.LineCrossed = true
		e.lastLine = rs.LineIndex
		if e.onLine != nil && rs.LineIndex != NoHighlight {
			e.onLine(rs.LineIndex)
		}
	}
	if rs.Finished && !e.finished {
		e.finished = true
		log.Debug("track finished", "elapsed", t)
		if e.onFinished != nil {
			e.onFinished()
		}
	}
	return rs, nil
}

// Reconcile passes an observed audio position to the playback clock.
// A DriftExceeded result is a warning: the engine logs it and keeps its
// own estimate.
func (e *Engine) Reconcile(reported time.Duration) error {
	err := e.clock.Reconcile(reported)
	if errors.Is(err, ErrDriftExceeded) {
		log.Warn("audio position unreliable, keeping own clock", "reported", reported, "error", err)
		return err
	}
	if errors.Is(err, ErrClockNotStarted) {
		// Position reports can race a stop; nothing to reconcile against.
		return nil
	}
	return err
}

// OnStateChange registers a callback for session state changes.
func (e *Engine) OnStateChange(fn func(StateType)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onState = fn
}

// OnLineChange registers a callback for line boundary crossings.
func (e *Engine) OnLineChange(fn func(int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLine = fn
}

// OnFinished registers a callback fired once when the trailing-silence
// window elapses after the last line.
func (e *Engine) OnFinished(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinished = fn
}

func (e *Engine) notifyState(s StateType) {
	if e.onState != nil {
		e.onState(s)
	}
}
