package karaoke

import (
	"fmt"
	"sync"
	"time"
)

// Default clock tuning. The audio subsystem's reported position is coarse
// and jittery, so small divergence is ignored; moderate divergence is
// smoothed rather than snapped; divergence past the ceiling means the
// report itself is unreliable and the clock keeps its own estimate.
const (
	DefaultDriftTolerance   = 250 * time.Millisecond
	DefaultDriftCeiling     = 3 * time.Second
	DefaultCorrectionWindow = 500 * time.Millisecond
)

// Clock maintains the authoritative elapsed-time estimate for one play
// session. It is driven by the monotonic wall clock, not by polling the
// audio subsystem, and reconciles against reported positions
// opportunistically. Safe for concurrent use: sampling happens on the
// render loop while reconciliation arrives from the audio observer.
type Clock struct {
	mu sync.Mutex

	started  bool
	startRef time.Time

	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration

	// In-flight drift correction, applied linearly over the window so the
	// highlight never visibly jumps.
	correction      time.Duration
	correctionStart time.Time

	tolerance time.Duration
	ceiling   time.Duration
	window    time.Duration
}

// NewClock creates a clock with the given drift tuning. Zero values fall
// back to the defaults.
func NewClock(tolerance, ceiling, window time.Duration) *Clock {
	if tolerance <= 0 {
		tolerance = DefaultDriftTolerance
	}
	if ceiling <= 0 {
		ceiling = DefaultDriftCeiling
	}
	if window <= 0 {
		window = DefaultCorrectionWindow
	}
	return &Clock{tolerance: tolerance, ceiling: ceiling, window: window}
}

// Start begins timing from zero. Starting an already running clock resets it.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.startRef = time.Now()
	c.paused = false
	c.pausedTotal = 0
	c.correction = 0
}

// Pause freezes the clock. Pausing an already paused clock is a no-op.
func (c *Clock) Pause() {
	c.pauseAt(time.Now())
}

func (c *Clock) pauseAt(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.paused {
		return
	}
	c.paused = true
	c.pausedAt = at
}

// Resume unfreezes the clock. Resuming a running clock is a no-op.
func (c *Clock) Resume() {
	c.resumeAt(time.Now())
}

func (c *Clock) resumeAt(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || !c.paused {
		return
	}
	pausedFor := at.Sub(c.pausedAt)
	c.pausedTotal += pausedFor
	// An in-flight correction must not burn down while paused; shift its
	// window so it picks up exactly where the pause froze it.
	if c.correction != 0 {
		c.correctionStart = c.correctionStart.Add(pausedFor)
	}
	c.paused = false
}

// Stop resets the clock to the unstarted state.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.paused = false
	c.pausedTotal = 0
	c.correction = 0
}

// Started reports whether the clock is running or paused.
func (c *Clock) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Now returns the elapsed session time. Sampling an unstarted clock is a
// caller error and returns ErrClockNotStarted.
func (c *Clock) Now() (time.Duration, error) {
	return c.nowAt(time.Now())
}

func (c *Clock) nowAt(at time.Time) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0, ErrClockNotStarted
	}
	return c.elapsedLocked(at), nil
}

// elapsedLocked computes elapsed time at the given instant, folding any
// completed drift correction into the start reference.
func (c *Clock) elapsedLocked(at time.Time) time.Duration {
	ref := at
	if c.paused {
		ref = c.pausedAt
	}
	elapsed := ref.Sub(c.startRef) - c.pausedTotal

	// The correction fraction is computed against ref, not at, so a pause
	// freezes an in-flight correction along with everything else.
	if c.correction != 0 {
		frac := float64(ref.Sub(c.correctionStart)) / float64(c.window)
		if frac >= 1 {
			c.startRef = c.startRef.Add(-c.correction)
			elapsed += c.correction
			c.correction = 0
		} else if frac > 0 {
			elapsed += time.Duration(float64(c.correction) * frac)
		}
	}

	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Reconcile compares the audio subsystem's reported position against the
// clock's own estimate. Divergence within the tolerance is ignored;
// divergence up to the ceiling schedules a linear correction over the
// smoothing window; divergence past the ceiling returns ErrDriftExceeded
// and leaves the clock untouched.
func (c *Clock) Reconcile(reported time.Duration) error {
	return c.reconcileAt(reported, time.Now())
}

func (c *Clock) reconcileAt(reported time.Duration, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrClockNotStarted
	}
	if c.paused {
		return nil
	}

	now := c.elapsedLocked(at)
	drift := reported - now
	abs := drift
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs <= c.tolerance:
		return nil
	case abs > c.ceiling:
		return fmt.Errorf("%w: reported %v, own estimate %v", ErrDriftExceeded, reported, now)
	}

	// Fold the applied portion of any in-flight correction so the new one
	// starts from the current estimate without a discontinuity.
	if c.correction != 0 {
		frac := float64(at.Sub(c.correctionStart)) / float64(c.window)
		if frac > 1 {
			frac = 1
		}
		if frac > 0 {
			c.startRef = c.startRef.Add(-time.Duration(float64(c.correction) * frac))
		}
		c.correction = 0
	}

	c.correction = drift
	c.correctionStart = at
	return nil
}
