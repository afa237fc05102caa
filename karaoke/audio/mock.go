package audio

import (
	"context"
	"sync"
	"time"

	"kara/karaoke"
)

// MockPlayer simulates playback without touching an audio device. Position
// advances with the wall clock while "playing", optionally skewed by a
// configurable rate to exercise drift handling.
type MockPlayer struct {
	mu sync.Mutex

	loaded   bool
	path     string
	duration time.Duration
	volume   float64

	playing   bool
	paused    bool
	startedAt time.Time
	pausedAt  time.Time
	pausedFor time.Duration

	// Skew scales the rate at which the simulated position advances.
	// 1.0 is real time; 1.02 drifts ahead 20ms per second.
	Skew float64

	// LoadErr, when set, is returned from Load.
	LoadErr error
}

// NewMockPlayer creates a mock with the given simulated track duration.
func NewMockPlayer(duration time.Duration) *MockPlayer {
	return &MockPlayer{duration: duration, volume: 1.0, Skew: 1.0}
}

func (m *MockPlayer) Load(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.loaded = true
	m.path = path
	m.playing = false
	m.paused = false
	return nil
}

func (m *MockPlayer) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return karaoke.NewError(ErrNotLoaded, "audio", "play")
	}
	if m.playing {
		return karaoke.NewError(ErrAlreadyPlaying, "audio", "play")
	}
	m.playing = true
	m.paused = false
	m.startedAt = time.Now()
	m.pausedFor = 0
	return nil
}

func (m *MockPlayer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return karaoke.NewError(ErrNotPlaying, "audio", "pause")
	}
	if !m.paused {
		m.paused = true
		m.pausedAt = time.Now()
	}
	return nil
}

func (m *MockPlayer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return karaoke.NewError(ErrNotPlaying, "audio", "resume")
	}
	if m.paused {
		m.pausedFor += time.Since(m.pausedAt)
		m.paused = false
	}
	return nil
}

func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	return nil
}

func (m *MockPlayer) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return 0
	}
	elapsed := time.Since(m.startedAt) - m.pausedFor
	if m.paused {
		elapsed = m.pausedAt.Sub(m.startedAt) - m.pausedFor
	}
	pos := time.Duration(float64(elapsed) * m.Skew)
	if pos > m.duration {
		pos = m.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (m *MockPlayer) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MockPlayer) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

func (m *MockPlayer) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
}

func (m *MockPlayer) Close() error {
	return m.Stop()
}

var _ karaoke.Player = (*MockPlayer)(nil)
var _ karaoke.Player = (*Player)(nil)
