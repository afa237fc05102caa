// Package transcribe produces word-level timestamps for an audio file by
// driving the whisper CLI, with a cache in front so repeated tracks skip
// the model entirely.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"kara/internal/cache"
	"kara/karaoke"
)

var (
	// ErrNoOutput is returned when whisper exits cleanly but produces no
	// usable result file.
	ErrNoOutput = errors.New("transcription produced no output")

	// ErrNoWords is returned when the result contains no word timestamps.
	ErrNoWords = errors.New("transcription contains no word timestamps")
)

// Transcriber runs whisper against audio files. A nil store disables
// caching. Implements karaoke.Transcriber.
type Transcriber struct {
	cfg   karaoke.WhisperConfig
	store *cache.TranscriptStore
}

// New creates a transcriber. store may be nil.
func New(cfg karaoke.WhisperConfig, store *cache.TranscriptStore) *Transcriber {
	return &Transcriber{cfg: cfg, store: store}
}

// Transcribe returns word timestamps for the audio file, from cache when
// possible.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (*karaoke.Transcript, error) {
	var key string
	if t.store != nil {
		var err error
		key, err = cache.Key(audioPath, t.cfg.Model)
		if err != nil {
			return nil, karaoke.NewError(err, "transcribe", "cache-key")
		}
		if transcript, ok := t.store.Get(key); ok {
			log.Debug("transcript cache hit", "path", audioPath, "model", t.cfg.Model)
			return transcript, nil
		}
	}

	transcript, err := t.run(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	if t.store != nil {
		if err := t.store.Put(key, transcript); err != nil {
			log.Warn("failed to cache transcript", "error", err)
		}
	}
	return transcript, nil
}

func (t *Transcriber) run(ctx context.Context, audioPath string) (*karaoke.Transcript, error) {
	outDir, err := os.MkdirTemp("", "kara-whisper-")
	if err != nil {
		return nil, karaoke.NewError(err, "transcribe", "run")
	}
	defer os.RemoveAll(outDir)

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	args := []string{
		audioPath,
		"--model", t.cfg.Model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--word_timestamps", "True",
	}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}

	log.Info("transcribing audio", "path", audioPath, "model", t.cfg.Model)
	cmd := exec.CommandContext(ctx, t.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, karaoke.NewError(fmt.Errorf("whisper timed out: %w", ctx.Err()), "transcribe", "run")
		}
		return nil, karaoke.NewError(fmt.Errorf("whisper failed: %w: %s", err, stderr.String()), "transcribe", "run")
	}

	resultPath := filepath.Join(outDir, jsonName(audioPath))
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, karaoke.NewError(fmt.Errorf("%w: %v", ErrNoOutput, err), "transcribe", "run")
	}

	transcript, err := parseWhisperJSON(data)
	if err != nil {
		return nil, karaoke.NewError(err, "transcribe", "parse")
	}
	transcript.Model = t.cfg.Model
	return transcript, nil
}

// jsonName maps an audio path to the result filename whisper writes: the
// base name with the extension swapped for .json.
func jsonName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}
