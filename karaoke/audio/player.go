// Package audio provides the audio playback collaborator: decoding via an
// ffmpeg subprocess and output through oto.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"kara/karaoke"
)

// Common player errors.
var (
	ErrNotLoaded      = errors.New("no audio loaded")
	ErrAlreadyPlaying = errors.New("audio is already playing")
	ErrNotPlaying     = errors.New("no audio is playing")
	ErrDecodeFailed   = errors.New("audio decoding failed")
)

// The process-wide oto context. oto allows a single context per process,
// so it is created once with the first player's format.
var (
	otoCtx     *oto.Context
	otoCtxErr  error
	otoCtxOnce sync.Once
)

func sharedContext(sampleRate, channels int) (*oto.Context, error) {
	otoCtxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoCtxErr = err
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoCtxErr
}

// positionReader wraps the PCM buffer and tracks how many bytes the audio
// backend has consumed, which is the basis for position reporting.
type positionReader struct {
	mu       sync.Mutex
	reader   *bytes.Reader
	consumed int64 // atomic
}

func newPositionReader(data []byte) *positionReader {
	return &positionReader{reader: bytes.NewReader(data)}
}

func (r *positionReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, err := r.reader.Read(p)
	if n > 0 {
		atomic.AddInt64(&r.consumed, int64(n))
	}
	return n, err
}

func (r *positionReader) Consumed() int64 {
	return atomic.LoadInt64(&r.consumed)
}

// Player plays a local audio file. The file is decoded up front to 16-bit
// little-endian PCM by ffmpeg, then streamed to oto. Implements
// karaoke.Player.
type Player struct {
	mu  sync.Mutex
	cfg karaoke.AudioConfig

	pcm    []byte
	reader *positionReader
	player *oto.Player

	bytesPerSecond int
	duration       time.Duration
	volume         float64
	playing        bool
	paused         bool
}

// NewPlayer creates a player with the given output format.
func NewPlayer(cfg karaoke.AudioConfig) *Player {
	return &Player{
		cfg:            cfg,
		bytesPerSecond: cfg.SampleRate * cfg.Channels * 2, // 16-bit samples
		volume:         1.0,
	}
}

// Load decodes the audio file to PCM. Any previously loaded audio is
// discarded.
func (p *Player) Load(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.cfg.FFmpegBinary,
		"-i", path,
		"-f", "s16le",
		"-ar", fmt.Sprint(p.cfg.SampleRate),
		"-ac", fmt.Sprint(p.cfg.Channels),
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	pcm, err := cmd.Output()
	if err != nil {
		return karaoke.NewError(fmt.Errorf("%w: %v: %s", ErrDecodeFailed, err, stderr.String()), "audio", "load")
	}
	if len(pcm) == 0 {
		return karaoke.NewError(fmt.Errorf("%w: ffmpeg produced no samples", ErrDecodeFailed), "audio", "load")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.pcm = pcm
	p.duration = time.Duration(len(pcm)) * time.Second / time.Duration(p.bytesPerSecond)
	log.Debug("audio decoded", "path", path, "bytes", len(pcm), "duration", p.duration)
	return nil
}

// Play starts playback from the beginning. A playing or paused player
// must be stopped first; resuming a pause is Resume's job.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pcm == nil {
		return karaoke.NewError(ErrNotLoaded, "audio", "play")
	}
	if p.playing {
		return karaoke.NewError(ErrAlreadyPlaying, "audio", "play")
	}

	ctx, err := sharedContext(p.cfg.SampleRate, p.cfg.Channels)
	if err != nil {
		return karaoke.NewError(err, "audio", "play")
	}

	p.reader = newPositionReader(p.pcm)
	p.player = ctx.NewPlayer(p.reader)
	p.player.SetVolume(p.volume)
	p.player.Play()
	p.playing = true
	p.paused = false
	return nil
}

// Pause temporarily stops playback. Pausing while paused is a no-op.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return karaoke.NewError(ErrNotPlaying, "audio", "pause")
	}
	if p.paused {
		return nil
	}
	p.player.Pause()
	p.paused = true
	return nil
}

// Resume continues from the paused position. Resuming while playing is a
// no-op.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return karaoke.NewError(ErrNotPlaying, "audio", "resume")
	}
	if !p.paused {
		return nil
	}
	p.player.Play()
	p.paused = false
	return nil
}

// Stop halts playback and discards position state. The decoded audio
// remains loaded and can be replayed.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.player != nil {
		_ = p.player.Close()
		p.player = nil
	}
	p.reader = nil
	p.playing = false
	p.paused = false
}

// Position returns the playback position: bytes handed to the audio
// backend minus what still sits in its buffer.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader == nil || p.player == nil {
		return 0
	}
	played := p.reader.Consumed() - int64(p.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	return time.Duration(played) * time.Second / time.Duration(p.bytesPerSecond)
}

// Duration returns the duration of the loaded audio.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// IsPlaying returns true while audio is audibly playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.paused
}

// SetVolume sets the playback volume (0.0 to 2.0).
func (p *Player) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 2 {
		volume = 2
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if p.player != nil {
		p.player.SetVolume(volume)
	}
}

// Close releases playback resources.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.pcm = nil
	return nil
}
