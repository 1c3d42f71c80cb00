package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lynx.log")

	logger, err := New(path, "debug")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With("run_id", "abc").Info("source started", "pid", 7)
	logger.Debug("debug line")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), data)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if record["msg"] != "source started" || record["run_id"] != "abc" {
		t.Fatalf("record = %v, want msg and run_id attributes", record)
	}
}

func TestNew_LevelFiltersRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lynx.log")

	logger, err := New(path, "warn")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("info record written at warn level: %q", data)
	}
	if !strings.Contains(string(data), "shown") {
		t.Fatalf("warn record missing: %q", data)
	}
}

func TestNop_IsSafe(t *testing.T) {
	logger := Nop()
	logger.With("k", "v").Error("discarded")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	var nilLogger *Logger
	nilLogger.Info("no panic")
	if err := nilLogger.Close(); err != nil {
		t.Fatalf("nil Close returned error: %v", err)
	}
}
