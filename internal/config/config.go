package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "SHRINKBATCH_CONFIG"

// Quality bounds shared by CRF (libx265) and HandBrake's -q scale.
const (
	MinQuality = 0
	MaxQuality = 51
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Workers is the number of files transcoded concurrently (default 2)
	Workers int `yaml:"workers"`

	// Quality is the default quality code (CRF / HandBrake -q, lower = better, default 30)
	Quality int `yaml:"quality"`

	// Engine selects the backend: auto, videotoolbox, nvenc, handbrake, ffmpeg
	Engine string `yaml:"engine"`

	// Remux enables the lossless stream-copy attempt before re-encoding
	Remux bool `yaml:"remux"`

	// MediaExtensions lists the file extensions picked up by the scanner
	MediaExtensions []string `yaml:"media_extensions"`

	// RemuxContainers lists the source containers eligible for stream copy into MP4
	RemuxContainers []string `yaml:"remux_containers"`

	// BitrateTable maps quality codes to video bitrate in kbit/s for hardware encoders.
	// Must be non-increasing as the code grows.
	BitrateTable map[int]int `yaml:"bitrate_table"`

	// FFmpegPath is the path to ffmpeg binary (default: "ffmpeg")
	FFmpegPath string `yaml:"ffmpeg_path"`

	// FFprobePath is the path to ffprobe binary (default: "ffprobe")
	FFprobePath string `yaml:"ffprobe_path"`

	// HandBrakePath is the path to HandBrakeCLI (default: "HandBrakeCLI")
	HandBrakePath string `yaml:"handbrake_path"`

	// HandBrakePreset is passed to HandBrakeCLI --preset
	HandBrakePreset string `yaml:"handbrake_preset"`

	// AudioBitrate is the AAC bitrate used when re-encoding (default "160k")
	AudioBitrate string `yaml:"audio_bitrate"`

	// WriteStats writes an ffprobe record per output under <output>/_stats
	WriteStats bool `yaml:"write_stats"`

	// History records every run in a SQLite database
	History bool `yaml:"history"`

	// HistoryPath is the history database (default: <output>/_stats/history.db)
	HistoryPath string `yaml:"history_path"`

	// AutoInstall tries the platform package manager when no engine is installed
	AutoInstall bool `yaml:"auto_install"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json
	LogFormat string `yaml:"log_format"`
}

// DefaultBitrateTable returns the quality-to-bitrate mapping for hardware encoders.
func DefaultBitrateTable() map[int]int {
	return map[int]int{
		18: 8000,
		20: 6000,
		22: 4500,
		24: 3500,
		26: 2500,
		28: 1800,
		30: 1400,
	}
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Workers:         2,
		Quality:         30,
		Engine:          DefaultEngine,
		Remux:           false,
		MediaExtensions: []string{".avi", ".mp4", ".mov", ".mkv", ".m4v", ".webm"},
		RemuxContainers: []string{".mp4", ".m4v", ".mov"},
		BitrateTable:    DefaultBitrateTable(),
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		HandBrakePath:   "HandBrakeCLI",
		HandBrakePreset: "H.265 MKV 1080p30",
		AudioBitrate:    "160k",
		WriteStats:      false,
		History:         true,
		AutoInstall:     true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// DefaultPath returns the config file location: $SHRINKBATCH_CONFIG, else
// <user config dir>/shrinkbatch/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "shrinkbatch.yaml"
	}
	return filepath.Join(dir, "shrinkbatch", "config.yaml")
}

// Load reads config from a YAML file, applying defaults for missing values
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file - use defaults
			return cfg, nil
		}
		return nil, err
	}

	// yaml.v3 merges into a non-nil map; a configured table replaces the default
	cfg.BitrateTable = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for empty values
	defaults := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaults.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = defaults.FFprobePath
	}
	if cfg.HandBrakePath == "" {
		cfg.HandBrakePath = defaults.HandBrakePath
	}
	if cfg.HandBrakePreset == "" {
		cfg.HandBrakePreset = defaults.HandBrakePreset
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = defaults.AudioBitrate
	}
	if cfg.Engine == "" {
		cfg.Engine = defaults.Engine
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaults.Workers
	}
	if len(cfg.MediaExtensions) == 0 {
		cfg.MediaExtensions = defaults.MediaExtensions
	}
	if cfg.RemuxContainers == nil {
		cfg.RemuxContainers = defaults.RemuxContainers
	}
	if len(cfg.BitrateTable) == 0 {
		cfg.BitrateTable = defaults.BitrateTable
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}
	cfg.MediaExtensions = normalizeExtensions(cfg.MediaExtensions)
	cfg.RemuxContainers = normalizeExtensions(cfg.RemuxContainers)

	return cfg, nil
}

// Save writes the config to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks values that flags and YAML can both get wrong.
func (c *Config) Validate() error {
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("%w: quality %d outside %d-%d", ErrInvalidConfig, c.Quality, MinQuality, MaxQuality)
	}
	if !IsValidEngine(c.Engine) {
		return fmt.Errorf("%w: unknown engine %q (valid: %s)", ErrInvalidConfig, c.Engine, strings.Join(ValidEngines, ", "))
	}
	if !IsValidLogFormat(c.LogFormat) {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if len(c.MediaExtensions) == 0 {
		return fmt.Errorf("%w: media_extensions is empty", ErrInvalidConfig)
	}
	return ValidateBitrateTable(c.BitrateTable)
}

// ValidateBitrateTable requires a non-empty table whose bitrates never grow
// as the quality code grows.
func ValidateBitrateTable(table map[int]int) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: bitrate_table is empty", ErrInvalidConfig)
	}
	codes := make([]int, 0, len(table))
	for code, kbps := range table {
		if kbps <= 0 {
			return fmt.Errorf("%w: bitrate_table[%d] = %d, must be positive", ErrInvalidConfig, code, kbps)
		}
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for i := 1; i < len(codes); i++ {
		prev, cur := codes[i-1], codes[i]
		if table[cur] > table[prev] {
			return fmt.Errorf("%w: bitrate_table not monotonic: %d->%dk but %d->%dk",
				ErrInvalidConfig, prev, table[prev], cur, table[cur])
		}
	}
	return nil
}

// IsRemuxContainer reports whether ext (with dot, any case) may be stream-copied.
func (c *Config) IsRemuxContainer(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.RemuxContainers {
		if e == ext {
			return true
		}
	}
	return false
}

// ResolveHistoryPath returns the history database location for a run writing into outputRoot.
func (c *Config) ResolveHistoryPath(outputRoot string) string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(outputRoot, "_stats", "history.db")
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
