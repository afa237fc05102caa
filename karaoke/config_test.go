package karaoke

import (
	"testing"
	"time"
)

// TestDefaultConfigValid tests that the defaults pass validation.
func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() does not validate: %v", err)
	}
	if cfg.GapThreshold != 800*time.Millisecond {
		t.Errorf("default gap threshold = %v, want 800ms", cfg.GapThreshold)
	}
	if cfg.TimingOffset != 0 {
		t.Errorf("default timing offset = %v, want 0", cfg.TimingOffset)
	}
	if mode, err := cfg.DisplayMode(); err != nil || mode != ModeCharacter {
		t.Errorf("default mode = %v (%v), want character", mode, err)
	}
}

// TestConfigValidate tests rejection of out-of-range values.
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "sentence" }},
		{"zero gap", func(c *Config) { c.GapThreshold = 0 }},
		{"negative trailing", func(c *Config) { c.TrailingSilence = -time.Second }},
		{"zero line duration", func(c *Config) { c.MaxLineDuration = 0 }},
		{"zero line words", func(c *Config) { c.MaxLineWords = 0 }},
		{"ceiling below tolerance", func(c *Config) { c.DriftCeiling = c.DriftTolerance / 2 }},
		{"zero window", func(c *Config) { c.CorrectionWindow = 0 }},
		{"volume too high", func(c *Config) { c.Volume = 2.5 }},
		{"frame rate too high", func(c *Config) { c.FrameRate = 500 }},
		{"empty whisper binary", func(c *Config) { c.Whisper.Binary = "" }},
		{"empty whisper model", func(c *Config) { c.Whisper.Model = "" }},
		{"empty download binary", func(c *Config) { c.Download.Binary = "" }},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 12345 }},
		{"bad channels", func(c *Config) { c.Audio.Channels = 5 }},
		{"cache too small", func(c *Config) { c.Cache.MaxSizeMB = 0 }},
		{"compression out of range", func(c *Config) { c.Cache.Compression = 20 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

// TestConfigEnvOverride tests environment variable parsing.
func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("KARA_MODE", "word")
	t.Setenv("KARA_GAP_THRESHOLD", "1.2s")
	t.Setenv("KARA_TIMING_OFFSET", "-300ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != "word" {
		t.Errorf("Mode = %q, want word", cfg.Mode)
	}
	if cfg.GapThreshold != 1200*time.Millisecond {
		t.Errorf("GapThreshold = %v, want 1.2s", cfg.GapThreshold)
	}
	if cfg.TimingOffset != -300*time.Millisecond {
		t.Errorf("TimingOffset = %v, want -300ms", cfg.TimingOffset)
	}
}

// TestFrameInterval tests the sampling interval derivation.
func TestFrameInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameRate = 60
	if got := cfg.FrameInterval(); got != time.Second/60 {
		t.Errorf("FrameInterval() = %v, want %v", got, time.Second/60)
	}
}
