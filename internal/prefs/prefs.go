// Package prefs persists what the user last chose in the viewer: the theme,
// the text filter and the minimum level. Preferences are stored in
// ~/.config/lynx/prefs.toml and override the config file on the next start.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/lynx/internal/trace"
)

// Prefs holds the viewer choices that outlive a session. Empty Filter and
// Level leave the config file values in effect.
type Prefs struct {
	Theme  string `toml:"theme"`
	Filter string `toml:"filter,omitempty"`
	Level  string `toml:"level,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/lynx/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load returns the saved preferences. A missing file is not an error. A file
// that cannot be read or parsed yields the defaults together with the error,
// so callers can log it and carry on. An unknown level is dropped and
// reported the same way; known levels come back in their canonical name.
func Load(path string) (Prefs, error) {
	p := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return p, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Prefs{Theme: defaultTheme}, fmt.Errorf("parse prefs %s: %w", resolved, err)
	}

	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	if strings.TrimSpace(p.Level) == "" {
		p.Level = ""
		return p, nil
	}
	level, err := trace.ParseLevelName(p.Level)
	if err != nil {
		p.Level = ""
		return p, fmt.Errorf("prefs level: %w", err)
	}
	p.Level = level.String()
	return p, nil
}

// Save replaces the preferences file, creating its directory as needed. The
// file is written next to its final name and renamed into place, so a reader
// never sees a partial file.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// resolvePath expands a leading ~ and makes path absolute. Empty means the
// default location.
func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(trimmed, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, rest)
	}
	return filepath.Abs(trimmed)
}
