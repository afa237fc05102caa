// Package main provides the entry point for the kara CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"kara/fetch"
	"kara/internal/cache"
	"kara/karaoke"
	"kara/karaoke/audio"
	"kara/transcribe"
	"kara/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile     string
	mode           string
	offsetSeconds  float64
	gapSeconds     float64
	whisperModel   string
	transcriptPath string
	noCache        bool
	keepAudio      bool
	volume         float64
	debug          bool

	rootCmd = &cobra.Command{
		Use:   "kara [QUERY|URL|FILE]",
		Short: "Sing along to anything, right in your terminal",
		Long: paragraph(
			fmt.Sprintf("\nPlay a song and follow the lyrics %s, word by word.", keyword("as they are sung")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Show transcript cache usage",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return showCacheStats()
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached transcripts",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return clearCache()
		},
	}
)

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3399")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render
)

func validateOptions(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("mode") {
		if v := viper.GetString("mode"); v != "" {
			mode = v
		}
	}
	if !cmd.Flags().Changed("volume") && viper.IsSet("volume") {
		volume = viper.GetFloat64("volume")
	}
	if !cmd.Flags().Changed("model") {
		if v := viper.GetString("whisper.model"); v != "" {
			whisperModel = v
		}
	}
	if !cmd.Flags().Changed("gap") && viper.IsSet("gap_threshold") {
		gapSeconds = viper.GetFloat64("gap_threshold")
	}
	if !cmd.Flags().Changed("offset") && viper.IsSet("timing_offset") {
		offsetSeconds = viper.GetFloat64("timing_offset")
	}
	if viper.GetBool("debug") {
		debug = true
	}
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if _, err := karaoke.ParseDisplayMode(mode); err != nil {
		return err
	}
	if offsetSeconds < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// buildConfig layers config sources: env defaults, then the config file,
// then flags.
func buildConfig() (karaoke.Config, error) {
	cfg, err := karaoke.LoadConfig()
	if err != nil {
		return karaoke.Config{}, err
	}

	if v := viper.GetString("whisper.binary"); v != "" {
		cfg.Whisper.Binary = v
	}
	if v := viper.GetString("whisper.language"); v != "" {
		cfg.Whisper.Language = v
	}
	if v := viper.GetString("download.binary"); v != "" {
		cfg.Download.Binary = v
	}
	if v := viper.GetString("download.format"); v != "" {
		cfg.Download.Format = v
	}
	if v := viper.GetString("download.quality"); v != "" {
		cfg.Download.Quality = v
	}
	if v := viper.GetString("audio.ffmpeg_binary"); v != "" {
		cfg.Audio.FFmpegBinary = v
	}
	if viper.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = viper.GetInt("audio.sample_rate")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("cache.max_size") {
		cfg.Cache.MaxSizeMB = viper.GetInt("cache.max_size")
	}
	if viper.IsSet("frame_rate") {
		cfg.FrameRate = viper.GetInt("frame_rate")
	}

	cfg.Mode = mode
	cfg.Volume = volume
	cfg.Whisper.Model = whisperModel
	cfg.GapThreshold = time.Duration(gapSeconds * float64(time.Second))
	cfg.TimingOffset = time.Duration(offsetSeconds * float64(time.Second))
	if noCache {
		cfg.Cache.Enabled = false
	}
	if keepAudio {
		cfg.CleanupAudio = false
	}

	if err := cfg.Validate(); err != nil {
		return karaoke.Config{}, err
	}
	return cfg, nil
}

// cacheDir resolves the transcript cache location, defaulting to the
// user's cache directory.
func cacheDir(cfg karaoke.CacheConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	scope := gap.NewScope(gap.User, "kara")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve cache directory: %w", err)
	}
	return filepath.Join(dir, "transcripts"), nil
}

func execute(_ *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("kara needs an interactive terminal")
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	arg := args[0]
	var fetcher karaoke.Fetcher
	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		fetcher = fetch.LocalFetcher{Path: arg}
	} else {
		dl := fetch.New(cfg.Download)
		fetcher = dl
		if cfg.CleanupAudio {
			defer dl.Cleanup() //nolint:errcheck
		}
	}

	var store *cache.TranscriptStore
	if cfg.Cache.Enabled {
		dir, err := cacheDir(cfg.Cache)
		if err != nil {
			return err
		}
		store, err = cache.NewTranscriptStore(dir, int64(cfg.Cache.MaxSizeMB), cfg.Cache.Compression)
		if err != nil {
			log.Warn("transcript cache unavailable", "error", err)
		} else {
			defer store.Close() //nolint:errcheck
		}
	}

	var transcript *karaoke.Transcript
	if transcriptPath != "" {
		transcript, err = transcribe.LoadFile(transcriptPath)
		if err != nil {
			return err
		}
	}

	player := audio.NewPlayer(cfg.Audio)
	defer player.Close() //nolint:errcheck

	model := ui.NewModel(ui.Options{
		Config:      cfg,
		Engine:      karaoke.NewEngine(cfg),
		Player:      player,
		Fetcher:     fetcher,
		Transcriber: transcribe.New(cfg.Whisper, store),
		Query:       arg,
		Transcript:  transcript,
	})

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

func showCacheStats() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	dir, err := cacheDir(cfg.Cache)
	if err != nil {
		return err
	}
	store, err := cache.NewTranscriptStore(dir, int64(cfg.Cache.MaxSizeMB), cfg.Cache.Compression)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	_, disk := store.Stats()
	fmt.Printf("location:   %s\n", dir)
	fmt.Printf("transcripts: %d\n", disk.ItemCount)
	fmt.Printf("size:       %s of %s\n",
		humanize.Bytes(uint64(disk.Size)),
		humanize.Bytes(uint64(disk.Capacity)))
	return nil
}

func clearCache() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	dir, err := cacheDir(cfg.Cache)
	if err != nil {
		return err
	}
	store, err := cache.NewTranscriptStore(dir, int64(cfg.Cache.MaxSizeMB), cfg.Cache.Compression)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Cleared transcript cache at", dir)
	return nil
}

// setupLog routes logging to a file when debugging is enabled through the
// environment, and silences it otherwise. The TUI owns the terminal.
func setupLog() (func() error, error) {
	if os.Getenv("KARA_DEBUG") == "" {
		log.SetOutput(io.Discard)
		return func() error { return nil }, nil
	}

	scope := gap.NewScope(gap.User, "kara")
	dir, err := scope.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("could not resolve log location: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "kara.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return f.Close, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "character", "highlight mode: word or character")
	rootCmd.Flags().Float64VarP(&offsetSeconds, "offset", "o", 0, "delay lyrics by this many seconds")
	rootCmd.Flags().Float64VarP(&gapSeconds, "gap", "g", 0.8, "silence gap that starts a new line, in seconds")
	rootCmd.Flags().StringVar(&whisperModel, "model", "base.en", "whisper model to transcribe with")
	rootCmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "use a transcript file instead of transcribing")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the transcript cache")
	rootCmd.Flags().BoolVar(&keepAudio, "keep-audio", false, "keep downloaded audio files")
	rootCmd.Flags().Float64VarP(&volume, "volume", "v", 1.0, "playback volume (0.0 to 2.0)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "verbose logging")

	_ = viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("whisper.model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("mode", "character")
	viper.SetDefault("gap_threshold", 0.8)
	viper.SetDefault("timing_offset", 0.0)
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 100)

	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(configCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "kara")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "kara")}, dirs...)
	}

	if c := os.Getenv("KARA_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("kara")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("kara")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "kara.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
