package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/lynx/internal/app"
)

// runFunc starts the application; tests replace it.
type runFunc func(ctx context.Context, opts app.Options) error

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return newRootCmd(app.Run).ExecuteContext(ctx)
}

func newRootCmd(run runFunc) *cobra.Command {
	var (
		opts     app.Options
		filter   string
		sampling time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lynx [flags] [-- command [args...]]",
		Short: "Live, filterable view of logcat-style traces",
		Long: `Lynx reads a running log producer line by line, keeps the traces that
match the active filter and minimum level, and shows them at a bounded
refresh rate.

By default it runs "adb logcat -v time". Arguments after the flags replace
the command; --file follows a log file instead.

Examples:
  # Watch the connected device
  lynx

  # Only warnings and errors mentioning "network"
  lynx --level warn --filter network

  # A specific device, printed to stdout
  lynx --plain -- adb -s emulator-5554 logcat -v time

  # Follow a captured log
  lynx --file ~/captures/boot.log`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Command = args
			}
			if cmd.Flags().Changed("filter") {
				opts.Filter = &filter
			}
			if cmd.Flags().Changed("sampling") {
				opts.Sampling = sampling
			}
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	// Flags after the command belong to the command.
	flags.SetInterspersed(false)
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default is ~/.config/lynx/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default is ~/.config/lynx/prefs.toml)")
	flags.StringVarP(&opts.File, "file", "f", "", "follow a log file instead of running a command")
	flags.StringVar(&filter, "filter", "", "only show lines containing this text (case-insensitive)")
	flags.StringVarP(&opts.Level, "level", "l", "", "minimum level (verbose/debug/info/warn/error/assert)")
	flags.DurationVar(&sampling, "sampling", 0, "minimum interval between refreshes (e.g. 300ms)")
	flags.IntVar(&opts.MaxTraces, "max-traces", 0, "traces kept for display")
	flags.BoolVar(&opts.Plain, "plain", false, "print traces to stdout instead of the TUI")
	flags.BoolVar(&opts.Once, "once", false, "do not restart the source when it exits")
	flags.StringVar(&opts.LogLevel, "log-level", "", "lynx's own log level (debug/info/warn/error)")

	return cmd
}
