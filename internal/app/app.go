package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/five82/lynx/internal/config"
	"github.com/five82/lynx/internal/logcat"
	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/logtail"
	"github.com/five82/lynx/internal/lynx"
	"github.com/five82/lynx/internal/prefs"
	"github.com/five82/lynx/internal/state"
	"github.com/five82/lynx/internal/ui"
)

// Options configure the lynx application. Zero values leave the config file
// settings in place.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/lynx/prefs.toml

	// Command replaces the configured producer command.
	Command []string
	// File follows a log file instead of running a command.
	File string

	Filter    *string
	Level     string
	Sampling  time.Duration
	MaxTraces int
	LogLevel  string

	// Plain prints traces to Stdout instead of starting the TUI. It is
	// implied when Stdout is not a terminal.
	Plain bool
	// Once disables restarting the source; in plain mode Run returns after
	// the source exits and every trace has been printed.
	Once bool

	Stdout io.Writer // nil uses os.Stdout
}

// Run boots lynx until the context is cancelled, the user quits the TUI or,
// with Once in plain mode, the source exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	plain := opts.Plain || !isTerminal(stdout)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	var (
		userPrefs prefs.Prefs
		prefsErr  error
	)
	if !plain {
		// Filter and level chosen in the TUI outlive the session.
		userPrefs, prefsErr = prefs.Load(prefsPath)
		applyPrefs(&cfg, userPrefs)
	}
	applyOverrides(&cfg, opts)

	filterCfg, err := cfg.FilterConfig()
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Close() }()
	if prefsErr != nil {
		logger.Warn("prefs ignored", "error", prefsErr)
	}
	logger.Info("lynx starting",
		"source", cfg.SourceName(),
		"filter", filterCfg.Filter(),
		"level", filterCfg.FilterTraceLevel().String(),
		"sampling", filterCfg.SamplingRate().String(),
		"plain", plain,
	)

	// Background goroutines end with Run.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop := lynx.NewLoop()
	go loop.Run(runCtx)

	engine := lynx.New(newSpawner(cfg, logger), loop,
		lynx.WithConfig(filterCfg),
		lynx.WithLogger(logger),
	)
	store := state.NewStore(filterCfg.MaxTracesToShow())

	notify := func() {}
	var runUI func() error
	if plain {
		engine.RegisterListener(newPrinter(stdout, logger))
	} else {
		// A theme set in the config file pins it.
		p := ui.NewProgram(ui.Options{
			Context:    ctx,
			Store:      store,
			Controller: engine,
			SourceName: cfg.SourceName(),
			ThemeName:  firstNonEmpty(cfg.Theme, userPrefs.Theme),
			PrefsPath:  prefsPath,
			Logger:     logger,
		})
		notify = func() { p.Send(ui.RefreshMsg{}) }
		runUI = func() error { return ui.Run(ctx, p) }
	}
	engine.RegisterListener(newStoreListener(store, notify))

	if err := engine.Start(); err != nil {
		return err
	}
	defer engine.Stop()

	poller := StartPoller(runCtx, store, engine, PollerOptions{
		Interval:  filterCfg.SamplingRate(),
		Supervise: !opts.Once,
		Logger:    logger,
	})

	r := &reloader{
		opts:   opts,
		source: cfg.SourceName(),
		engine: engine,
		store:  store,
		poller: poller,
		logger: logger,
	}
	go func() {
		if err := config.Watch(runCtx, opts.ConfigPath, logger, r.apply); err != nil {
			logger.Warn("config watch disabled", "error", err)
		}
	}()

	if runUI != nil {
		if err := runUI(); err != nil {
			return fmt.Errorf("run ui: %w", err)
		}
		logger.Info("lynx stopped")
		return nil
	}

	if opts.Once {
		waitForSource(ctx, engine, loop, filterCfg.SamplingRate())
	} else {
		<-ctx.Done()
	}
	logger.Info("lynx stopped")
	return nil
}

// reloader applies a hot-reloaded config file to the running engine.
type reloader struct {
	opts   Options
	source string
	engine interface{ SetConfig(lynx.Config) }
	store  *state.Store
	poller *Poller
	logger *logging.Logger
}

func (r *reloader) apply(next config.Config) {
	applyOverrides(&next, r.opts)
	nextFilter, err := next.FilterConfig()
	if err != nil {
		r.logger.Warn("reloaded config rejected", "error", err)
		return
	}
	r.engine.SetConfig(nextFilter)
	r.store.SetLimit(nextFilter.MaxTracesToShow())
	r.poller.SetInterval(nextFilter.SamplingRate())

	if name := next.SourceName(); name != r.source {
		r.logger.Warn("source changed in config, restart lynx to use it",
			"current", r.source,
			"configured", name,
		)
	}
}

func newSpawner(cfg config.Config, logger *logging.Logger) lynx.Spawner {
	if cfg.File != "" {
		return logtail.Spawner(cfg.File, cfg.Backfill, logger)
	}
	return logcat.Spawner(cfg.Command, logger)
}

// applyPrefs lets saved TUI choices win over the config file.
func applyPrefs(cfg *config.Config, p prefs.Prefs) {
	if p.Filter != "" {
		cfg.Filter = p.Filter
	}
	if p.Level != "" {
		cfg.Level = p.Level
	}
}

// applyOverrides applies command line flags on top of cfg.
func applyOverrides(cfg *config.Config, opts Options) {
	if len(opts.Command) > 0 {
		cfg.Command = append([]string(nil), opts.Command...)
		cfg.File = ""
	}
	if opts.File != "" {
		cfg.File = opts.File
	}
	if opts.Filter != nil {
		cfg.Filter = *opts.Filter
	}
	if opts.Level != "" {
		cfg.Level = opts.Level
	}
	if opts.Sampling > 0 {
		cfg.SamplingRate = opts.Sampling
	}
	if opts.MaxTraces > 0 {
		cfg.MaxTraces = opts.MaxTraces
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
}

// waitForSource blocks until the source has exited and every buffered
// trace has been delivered, or ctx is cancelled.
func waitForSource(ctx context.Context, engine *lynx.Lynx, loop *lynx.Loop, interval time.Duration) {
	ticker := time.NewTicker(pollInterval(interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if engine.Running() {
			continue
		}
		engine.Flush()
		if engine.Pending() == 0 {
			break
		}
	}

	// Tasks run in order, so this one runs after the last delivery.
	drained := make(chan struct{})
	loop.Post(func() { close(drained) })
	select {
	case <-drained:
	case <-ctx.Done():
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
