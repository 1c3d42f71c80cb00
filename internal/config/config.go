package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/lynx/internal/lynx"
	"github.com/five82/lynx/internal/trace"
)

// Config holds the settings lynx reads from its TOML file.
type Config struct {
	// Command is the argv of the log producer. Ignored when File is set.
	Command []string
	// File, when set, is followed instead of running Command.
	File     string
	Backfill int

	Filter       string
	Level        string
	SamplingRate time.Duration
	MaxTraces    int

	Theme    string
	LogFile  string
	LogLevel string
}

const (
	defaultConfigPath   = "~/.config/lynx/config.toml"
	defaultLogFile      = "~/.local/state/lynx/lynx.log"
	defaultLogLevel     = "info"
	defaultBackfill     = 400
	defaultSamplingRate = 300 * time.Millisecond
	defaultMaxTraces    = 2500
)

var defaultCommand = []string{"adb", "logcat", "-v", "time"}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Command:      append([]string(nil), defaultCommand...),
		Backfill:     defaultBackfill,
		SamplingRate: defaultSamplingRate,
		MaxTraces:    defaultMaxTraces,
		LogFile:      mustExpand(defaultLogFile),
		LogLevel:     defaultLogLevel,
	}
}

type rawConfig struct {
	Command    []string `toml:"command"`
	File       string   `toml:"file"`
	Backfill   *int     `toml:"backfill"`
	Filter     string   `toml:"filter"`
	Level      string   `toml:"level"`
	SamplingMS int      `toml:"sampling_ms"`
	MaxTraces  int      `toml:"max_traces"`
	Theme      string   `toml:"theme"`
	LogFile    string   `toml:"log_file"`
	LogLevel   string   `toml:"log_level"`
}

// Load locates and parses the lynx config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if command := trimAll(raw.Command); len(command) > 0 {
		cfg.Command = command
	}
	if file := strings.TrimSpace(raw.File); file != "" {
		cfg.File = mustExpand(file)
	}
	if raw.Backfill != nil {
		if *raw.Backfill < 0 {
			return Config{}, fmt.Errorf("parse config: backfill must not be negative")
		}
		cfg.Backfill = *raw.Backfill
	}
	cfg.Filter = raw.Filter
	cfg.Level = strings.TrimSpace(raw.Level)
	if cfg.Level != "" {
		if _, err := trace.ParseLevelName(cfg.Level); err != nil {
			return Config{}, fmt.Errorf("parse config: level: %w", err)
		}
	}
	switch {
	case raw.SamplingMS < 0:
		return Config{}, fmt.Errorf("parse config: sampling_ms must be positive")
	case raw.SamplingMS > 0:
		cfg.SamplingRate = time.Duration(raw.SamplingMS) * time.Millisecond
	}
	switch {
	case raw.MaxTraces < 0:
		return Config{}, fmt.Errorf("parse config: max_traces must be positive")
	case raw.MaxTraces > 0:
		cfg.MaxTraces = raw.MaxTraces
	}
	cfg.Theme = strings.TrimSpace(raw.Theme)
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}
	if logLevel := strings.TrimSpace(raw.LogLevel); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

// FilterConfig converts the file settings into an engine config.
func (c Config) FilterConfig() (lynx.Config, error) {
	level := trace.Verbose
	if strings.TrimSpace(c.Level) != "" {
		parsed, err := trace.ParseLevelName(c.Level)
		if err != nil {
			return lynx.Config{}, fmt.Errorf("level: %w", err)
		}
		level = parsed
	}
	cfg := lynx.DefaultConfig().
		WithFilter(c.Filter).
		WithFilterTraceLevel(level).
		WithSamplingRate(c.SamplingRate).
		WithMaxTracesToShow(c.MaxTraces)
	if err := cfg.Validate(); err != nil {
		return lynx.Config{}, err
	}
	return cfg, nil
}

// SourceName describes where traces come from, for status lines and logs.
func (c Config) SourceName() string {
	if c.File != "" {
		return c.File
	}
	return strings.Join(c.Command, " ")
}

// ResolvePath returns the absolute config path, using the default location
// when path is empty.
func ResolvePath(path string) (string, error) {
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
