package karaoke

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all player configuration options.
type Config struct {
	// Synchronization settings
	Mode             string        `yaml:"mode" env:"KARA_MODE" envDefault:"character"`
	GapThreshold     time.Duration `yaml:"gap_threshold" env:"KARA_GAP_THRESHOLD" envDefault:"800ms"`
	TimingOffset     time.Duration `yaml:"timing_offset" env:"KARA_TIMING_OFFSET" envDefault:"0s"`
	TrailingSilence  time.Duration `yaml:"trailing_silence" env:"KARA_TRAILING_SILENCE" envDefault:"2s"`
	MaxLineDuration  time.Duration `yaml:"max_line_duration" env:"KARA_MAX_LINE_DURATION" envDefault:"8s"`
	MaxLineWords     int           `yaml:"max_line_words" env:"KARA_MAX_LINE_WORDS" envDefault:"12"`
	DriftTolerance   time.Duration `yaml:"drift_tolerance" env:"KARA_DRIFT_TOLERANCE" envDefault:"250ms"`
	DriftCeiling     time.Duration `yaml:"drift_ceiling" env:"KARA_DRIFT_CEILING" envDefault:"3s"`
	CorrectionWindow time.Duration `yaml:"correction_window" env:"KARA_CORRECTION_WINDOW" envDefault:"500ms"`

	// Playback settings
	Volume       float64       `yaml:"volume" env:"KARA_VOLUME" envDefault:"1.0"`
	FrameRate    int           `yaml:"frame_rate" env:"KARA_FRAME_RATE" envDefault:"60"`
	CleanupAudio bool          `yaml:"cleanup_audio" env:"KARA_CLEANUP_AUDIO" envDefault:"true"`

	// Collaborator configurations
	Whisper  WhisperConfig  `yaml:"whisper"`
	Download DownloadConfig `yaml:"download"`
	Audio    AudioConfig    `yaml:"audio"`
	Cache    CacheConfig    `yaml:"cache"`
}

// WhisperConfig contains transcription settings.
type WhisperConfig struct {
	Binary   string        `yaml:"binary" env:"KARA_WHISPER_BINARY" envDefault:"whisper"`
	Model    string        `yaml:"model" env:"KARA_WHISPER_MODEL" envDefault:"base.en"`
	Language string        `yaml:"language" env:"KARA_WHISPER_LANGUAGE" envDefault:"en"`
	Timeout  time.Duration `yaml:"timeout" env:"KARA_WHISPER_TIMEOUT" envDefault:"10m"`
}

// DownloadConfig contains media acquisition settings.
type DownloadConfig struct {
	Binary        string        `yaml:"binary" env:"KARA_DOWNLOAD_BINARY" envDefault:"yt-dlp"`
	Quality       string        `yaml:"quality" env:"KARA_DOWNLOAD_QUALITY" envDefault:"192"`
	Format        string        `yaml:"format" env:"KARA_DOWNLOAD_FORMAT" envDefault:"mp3"`
	DefaultSearch string        `yaml:"default_search" env:"KARA_DOWNLOAD_SEARCH" envDefault:"ytsearch1"`
	Timeout       time.Duration `yaml:"timeout" env:"KARA_DOWNLOAD_TIMEOUT" envDefault:"5m"`
}

// AudioConfig contains audio output settings.
type AudioConfig struct {
	FFmpegBinary string `yaml:"ffmpeg_binary" env:"KARA_FFMPEG_BINARY" envDefault:"ffmpeg"`
	SampleRate   int    `yaml:"sample_rate" env:"KARA_SAMPLE_RATE" envDefault:"44100"`
	Channels     int    `yaml:"channels" env:"KARA_CHANNELS" envDefault:"2"`
}

// CacheConfig contains transcript cache settings.
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled" env:"KARA_CACHE_ENABLED" envDefault:"true"`
	Dir         string `yaml:"dir" env:"KARA_CACHE_DIR"`
	MaxSizeMB   int    `yaml:"max_size" env:"KARA_CACHE_MAX_SIZE" envDefault:"100"`
	Compression int    `yaml:"compression" env:"KARA_CACHE_COMPRESSION" envDefault:"3"`
}

// DefaultConfig returns a Config with defaults applied from the env tags.
func DefaultConfig() Config {
	cfg, err := LoadConfig()
	if err != nil {
		// Only reachable with malformed environment overrides; fall back
		// to a zero-environment parse of the defaults.
		return Config{
			Mode:             "character",
			GapThreshold:     800 * time.Millisecond,
			TrailingSilence:  2 * time.Second,
			MaxLineDuration:  DefaultMaxLineDuration,
			MaxLineWords:     DefaultMaxLineWords,
			DriftTolerance:   DefaultDriftTolerance,
			DriftCeiling:     DefaultDriftCeiling,
			CorrectionWindow: DefaultCorrectionWindow,
			Volume:           1.0,
			FrameRate:        60,
			CleanupAudio:     true,
			Whisper:          WhisperConfig{Binary: "whisper", Model: "base.en", Language: "en", Timeout: 10 * time.Minute},
			Download:         DownloadConfig{Binary: "yt-dlp", Quality: "192", Format: "mp3", DefaultSearch: "ytsearch1", Timeout: 5 * time.Minute},
			Audio:            AudioConfig{FFmpegBinary: "ffmpeg", SampleRate: 44100, Channels: 2},
			Cache:            CacheConfig{Enabled: true, MaxSizeMB: 100, Compression: 3},
		}
	}
	return cfg
}

// LoadConfig builds a Config from environment variables and env defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment config: %w", err)
	}
	return cfg, nil
}

// DisplayMode parses the configured mode.
func (c *Config) DisplayMode() (DisplayMode, error) {
	return ParseDisplayMode(c.Mode)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := ParseDisplayMode(c.Mode); err != nil {
		return err
	}
	if c.GapThreshold <= 0 {
		return fmt.Errorf("gap_threshold must be positive, got %v", c.GapThreshold)
	}
	if c.TrailingSilence < 0 {
		return fmt.Errorf("trailing_silence cannot be negative, got %v", c.TrailingSilence)
	}
	if c.MaxLineDuration <= 0 {
		return fmt.Errorf("max_line_duration must be positive, got %v", c.MaxLineDuration)
	}
	if c.MaxLineWords < 1 {
		return fmt.Errorf("max_line_words must be at least 1, got %d", c.MaxLineWords)
	}
	if c.DriftTolerance <= 0 || c.DriftCeiling <= c.DriftTolerance {
		return fmt.Errorf("drift ceiling (%v) must exceed drift tolerance (%v), both positive", c.DriftCeiling, c.DriftTolerance)
	}
	if c.CorrectionWindow <= 0 {
		return fmt.Errorf("correction_window must be positive, got %v", c.CorrectionWindow)
	}
	if c.Volume < 0.0 || c.Volume > 2.0 {
		return fmt.Errorf("volume must be between 0.0 and 2.0, got %f", c.Volume)
	}
	if c.FrameRate < 1 || c.FrameRate > 240 {
		return fmt.Errorf("frame_rate must be between 1 and 240, got %d", c.FrameRate)
	}
	if c.Whisper.Binary == "" {
		return fmt.Errorf("whisper binary cannot be empty")
	}
	if c.Whisper.Model == "" {
		return fmt.Errorf("whisper model cannot be empty")
	}
	if c.Download.Binary == "" {
		return fmt.Errorf("download binary cannot be empty")
	}
	validRates := []int{8000, 16000, 22050, 24000, 44100, 48000}
	rateOK := false
	for _, r := range validRates {
		if c.Audio.SampleRate == r {
			rateOK = true
			break
		}
	}
	if !rateOK {
		return fmt.Errorf("invalid sample rate %d: must be one of %v", c.Audio.SampleRate, validRates)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Audio.Channels)
	}
	if c.Cache.MaxSizeMB < 1 || c.Cache.MaxSizeMB > 10000 {
		return fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", c.Cache.MaxSizeMB)
	}
	if c.Cache.Compression < 0 || c.Cache.Compression > 11 {
		return fmt.Errorf("cache compression must be between 0 and 11, got %d", c.Cache.Compression)
	}
	return nil
}

// FrameInterval returns the sampling interval for the presentation loop.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}
