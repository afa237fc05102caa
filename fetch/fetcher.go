// Package fetch obtains audio tracks, either by downloading them with
// yt-dlp or by pointing at files already on disk.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"kara/karaoke"
)

var (
	// ErrDownloadFailed is returned when yt-dlp exits with an error.
	ErrDownloadFailed = errors.New("download failed")

	// ErrNoResult is returned when the downloader produced no file.
	ErrNoResult = errors.New("no audio file produced")
)

// Fetcher downloads audio with yt-dlp into a temporary directory.
// Implements karaoke.Fetcher.
type Fetcher struct {
	cfg karaoke.DownloadConfig
	dir string
}

// New creates a fetcher.
func New(cfg karaoke.DownloadConfig) *Fetcher {
	return &Fetcher{cfg: cfg}
}

// trackInfo is the subset of yt-dlp's info JSON we care about.
type trackInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Fetch downloads the audio for a query. URLs are downloaded directly;
// anything else goes through the configured search prefix.
func (f *Fetcher) Fetch(ctx context.Context, query string) (*karaoke.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, karaoke.NewError(errors.New("empty query"), "fetch", "fetch")
	}

	if f.dir == "" {
		dir, err := os.MkdirTemp("", "kara-audio-")
		if err != nil {
			return nil, karaoke.NewError(err, "fetch", "fetch")
		}
		f.dir = dir
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	target := f.target(query)
	args := f.args(target)
	log.Info("downloading audio", "target", target)

	cmd := exec.CommandContext(ctx, f.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, karaoke.NewError(fmt.Errorf("%w: timed out: %v", ErrDownloadFailed, ctx.Err()), "fetch", "fetch")
		}
		return nil, karaoke.NewError(fmt.Errorf("%w: %v: %s", ErrDownloadFailed, err, stderr.String()), "fetch", "fetch")
	}

	info, err := parseInfo(stdout.Bytes())
	if err != nil {
		return nil, karaoke.NewError(err, "fetch", "fetch")
	}

	path := filepath.Join(f.dir, info.ID+"."+f.cfg.Format)
	if _, err := os.Stat(path); err != nil {
		return nil, karaoke.NewError(fmt.Errorf("%w: %v", ErrNoResult, err), "fetch", "fetch")
	}

	log.Debug("download complete", "path", path, "title", info.Title)
	return &karaoke.Track{
		Path:     path,
		Title:    info.Title,
		Duration: time.Duration(info.Duration * float64(time.Second)),
	}, nil
}

// target turns a query into something yt-dlp accepts.
func (f *Fetcher) target(query string) string {
	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		return query
	}
	return f.cfg.DefaultSearch + ":" + query
}

func (f *Fetcher) args(target string) []string {
	return []string{
		"--extract-audio",
		"--audio-format", f.cfg.Format,
		"--audio-quality", f.cfg.Quality,
		"--no-playlist",
		"--print-json",
		"--quiet",
		"--output", filepath.Join(f.dir, "%(id)s.%(ext)s"),
		target,
	}
}

// parseInfo decodes the info JSON yt-dlp prints after a download.
func parseInfo(data []byte) (*trackInfo, error) {
	// With --print-json the info object is the last non-empty line.
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) == 0 || len(bytes.TrimSpace(lines[len(lines)-1])) == 0 {
		return nil, fmt.Errorf("%w: no metadata printed", ErrNoResult)
	}

	var info trackInfo
	if err := json.Unmarshal(lines[len(lines)-1], &info); err != nil {
		return nil, fmt.Errorf("failed to decode download metadata: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: metadata missing id", ErrNoResult)
	}
	return &info, nil
}

// Cleanup removes the download directory and everything in it.
func (f *Fetcher) Cleanup() error {
	if f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	f.dir = ""
	return err
}

// LocalFetcher serves a file already on disk, ignoring the query. It lets
// local playback share the download code path.
type LocalFetcher struct {
	Path string
}

// Fetch returns the local file as a track.
func (f LocalFetcher) Fetch(_ context.Context, _ string) (*karaoke.Track, error) {
	return Local(f.Path)
}

// Local wraps a file already on disk as a track. The duration is left
// zero; the player reports it after decoding.
func Local(path string) (*karaoke.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, karaoke.NewError(err, "fetch", "local")
	}
	if info.IsDir() {
		return nil, karaoke.NewError(fmt.Errorf("%s is a directory", path), "fetch", "local")
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return &karaoke.Track{Path: path, Title: title}, nil
}
