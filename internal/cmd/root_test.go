package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/five82/lynx/internal/app"
)

func execute(t *testing.T, args ...string) (app.Options, error) {
	t.Helper()
	var got app.Options
	cmd := newRootCmd(func(_ context.Context, opts app.Options) error {
		got = opts
		return nil
	})
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return got, err
}

func TestRootCmd_Defaults(t *testing.T) {
	opts, err := execute(t)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if opts.Command != nil || opts.Filter != nil || opts.Sampling != 0 || opts.Plain {
		t.Fatalf("opts = %+v, want zero overrides", opts)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	opts, err := execute(t,
		"--config", "/tmp/lynx.toml",
		"--file", "/var/log/app.log",
		"--filter", "network",
		"--level", "warn",
		"--sampling", "500ms",
		"--max-traces", "100",
		"--plain",
		"--once",
		"--log-level", "debug",
	)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if opts.ConfigPath != "/tmp/lynx.toml" {
		t.Fatalf("ConfigPath = %q", opts.ConfigPath)
	}
	if opts.File != "/var/log/app.log" {
		t.Fatalf("File = %q", opts.File)
	}
	if opts.Filter == nil || *opts.Filter != "network" {
		t.Fatalf("Filter = %v, want network", opts.Filter)
	}
	if opts.Level != "warn" || opts.LogLevel != "debug" {
		t.Fatalf("Level = %q LogLevel = %q", opts.Level, opts.LogLevel)
	}
	if opts.Sampling != 500*time.Millisecond {
		t.Fatalf("Sampling = %v, want 500ms", opts.Sampling)
	}
	if opts.MaxTraces != 100 || !opts.Plain || !opts.Once {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestRootCmd_EmptyFilterIsAnOverride(t *testing.T) {
	opts, err := execute(t, "--filter", "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if opts.Filter == nil || *opts.Filter != "" {
		t.Fatalf("Filter = %v, want explicit empty", opts.Filter)
	}
}

func TestRootCmd_CommandArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"after dash", []string{"--plain", "--", "adb", "-s", "emulator-5554", "logcat"}, "adb -s emulator-5554 logcat"},
		{"without dash", []string{"--plain", "adb", "logcat", "-v", "time"}, "adb logcat -v time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got := strings.Join(opts.Command, " "); got != tt.want {
				t.Fatalf("Command = %q, want %q", got, tt.want)
			}
			if !opts.Plain {
				t.Fatal("Plain = false")
			}
		})
	}
}

func TestRootCmd_RunError(t *testing.T) {
	want := errors.New("boom")
	cmd := newRootCmd(func(context.Context, app.Options) error { return want })
	cmd.SetArgs([]string{})
	if err := cmd.ExecuteContext(context.Background()); !errors.Is(err, want) {
		t.Fatalf("Execute error = %v, want %v", err, want)
	}
}

func TestRootCmd_BadFlag(t *testing.T) {
	if _, err := execute(t, "--sampling", "soon"); err == nil {
		t.Fatal("Execute accepted an invalid duration")
	}
}
