package audio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"kara/karaoke"
)

func TestPositionReaderConsumed(t *testing.T) {
	data := make([]byte, 1024)
	r := newPositionReader(data)

	buf := make([]byte, 100)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 100 {
		t.Fatalf("expected 100 bytes, got %d", n)
	}
	if got := r.Consumed(); got != 100 {
		t.Fatalf("expected 100 consumed, got %d", got)
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 924 {
		t.Fatalf("expected 924 remaining bytes, got %d", len(rest))
	}
	if got := r.Consumed(); got != 1024 {
		t.Fatalf("expected 1024 consumed, got %d", got)
	}
}

func TestPlayerLoadBadBinary(t *testing.T) {
	cfg := karaoke.DefaultConfig().Audio
	cfg.FFmpegBinary = "definitely-not-ffmpeg"
	p := NewPlayer(cfg)

	err := p.Load(context.Background(), "nope.mp3")
	if err == nil {
		t.Fatal("expected error from missing decoder binary")
	}
	var kerr *karaoke.Error
	if !errors.As(err, &kerr) {
		t.Fatalf("expected *karaoke.Error, got %T", err)
	}
	if kerr.Component != "audio" || kerr.Action != "load" {
		t.Fatalf("unexpected error context: %s/%s", kerr.Component, kerr.Action)
	}
}

func TestPlayerPlayWithoutLoad(t *testing.T) {
	p := NewPlayer(karaoke.DefaultConfig().Audio)
	if err := p.Play(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestPlayerPlayWhilePausedRejected(t *testing.T) {
	p := NewPlayer(karaoke.DefaultConfig().Audio)
	p.pcm = make([]byte, 4)
	p.playing = true
	p.paused = true

	// Restart while paused must not spin up a second backend player over
	// the live paused one; the session has to be stopped first.
	if err := p.Play(); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("expected ErrAlreadyPlaying, got %v", err)
	}
}

func TestMockPlayerPlayWhileActive(t *testing.T) {
	m := NewMockPlayer(time.Second)
	if err := m.Load(context.Background(), "track.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Play(); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("expected ErrAlreadyPlaying while playing, got %v", err)
	}
	if err := m.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("expected ErrAlreadyPlaying while paused, got %v", err)
	}

	// After Stop a fresh Play is allowed again.
	if err := m.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlayerPositionIdle(t *testing.T) {
	p := NewPlayer(karaoke.DefaultConfig().Audio)
	if got := p.Position(); got != 0 {
		t.Fatalf("expected zero position, got %v", got)
	}
	if p.IsPlaying() {
		t.Fatal("expected not playing")
	}
}

func TestMockPlayerLifecycle(t *testing.T) {
	m := NewMockPlayer(3 * time.Second)

	if err := m.Play(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := m.Load(context.Background(), "track.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsPlaying() {
		t.Fatal("expected playing")
	}

	if err := m.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.IsPlaying() {
		t.Fatal("expected paused")
	}
	frozen := m.Position()
	time.Sleep(20 * time.Millisecond)
	if got := m.Position(); got != frozen {
		t.Fatalf("position moved while paused: %v != %v", got, frozen)
	}

	if err := m.Resume(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Position(); got != 0 {
		t.Fatalf("expected zero position after stop, got %v", got)
	}
}

func TestMockPlayerPositionAdvances(t *testing.T) {
	m := NewMockPlayer(time.Minute)
	if err := m.Load(context.Background(), "track.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	first := m.Position()
	if first <= 0 {
		t.Fatalf("expected position to advance, got %v", first)
	}
	time.Sleep(30 * time.Millisecond)
	if second := m.Position(); second <= first {
		t.Fatalf("expected position to keep advancing: %v then %v", first, second)
	}
}

func TestMockPlayerSkew(t *testing.T) {
	m := NewMockPlayer(time.Minute)
	m.Skew = 10.0
	if err := m.Load(context.Background(), "track.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := m.Position(); got < 200*time.Millisecond {
		t.Fatalf("expected skewed position well ahead of wall clock, got %v", got)
	}
}

func TestMockPlayerDurationClamp(t *testing.T) {
	m := NewMockPlayer(10 * time.Millisecond)
	if err := m.Load(context.Background(), "track.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if got := m.Position(); got != 10*time.Millisecond {
		t.Fatalf("expected position clamped to duration, got %v", got)
	}
}

func TestMockPlayerLoadErr(t *testing.T) {
	m := NewMockPlayer(time.Second)
	m.LoadErr = errors.New("boom")
	if err := m.Load(context.Background(), "track.mp3"); err == nil {
		t.Fatal("expected injected load error")
	}
}
