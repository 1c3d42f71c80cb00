package app

import (
	"context"
	"errors"
	"time"

	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/state"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	minPollInterval     = 20 * time.Millisecond
	defaultRestartBase  = time.Second
	maxBackoff          = 30 * time.Second
)

var errSourceStopped = errors.New("source stopped")

// Engine is the part of the engine the poller drives. *lynx.Lynx implements
// it.
type Engine interface {
	Flush()
	Running() bool
	Restart() error
}

// PollerOptions configure StartPoller.
type PollerOptions struct {
	// Interval between flushes; zero uses the default.
	Interval time.Duration
	// RestartBase is the first restart delay; it doubles per failure.
	RestartBase time.Duration
	// Supervise restarts the source when it stops.
	Supervise bool
	Logger    *logging.Logger
}

// StartPoller launches a background goroutine that flushes the engine at a
// fixed cadence and, when supervising, restarts a stopped source with
// exponential backoff. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, engine Engine, opts PollerOptions) *Poller {
	p := newPoller(store, engine, opts)
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case d := <-p.reset:
				p.interval = d
				ticker.Reset(d)
			case now := <-ticker.C:
				p.tick(now)
			}
		}
	}()
	return p
}

// Poller is the state of a running StartPoller goroutine.
type Poller struct {
	store     *state.Store
	engine    Engine
	interval  time.Duration
	base      time.Duration
	supervise bool
	logger    *logging.Logger
	reset     chan time.Duration

	failures    int
	nextAttempt time.Time
}

func newPoller(store *state.Store, engine Engine, opts PollerOptions) *Poller {
	base := opts.RestartBase
	if base <= 0 {
		base = defaultRestartBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Poller{
		store:     store,
		engine:    engine,
		interval:  pollInterval(opts.Interval),
		base:      base,
		supervise: opts.Supervise,
		logger:    logger.With("component", "poller"),
		reset:     make(chan time.Duration, 1),
	}
}

// SetInterval changes the flush cadence. Only the latest pending value is
// applied; it never blocks.
func (p *Poller) SetInterval(interval time.Duration) {
	d := pollInterval(interval)
	for {
		select {
		case p.reset <- d:
			return
		default:
		}
		select {
		case <-p.reset:
		default:
		}
	}
}

func (p *Poller) tick(now time.Time) {
	p.engine.Flush()
	if !p.supervise {
		return
	}

	if p.engine.Running() {
		if p.failures > 0 {
			p.logger.Info("source recovered", "failures", p.failures)
			p.failures = 0
			p.nextAttempt = time.Time{}
			p.store.RecordSource(nil)
		}
		return
	}
	if now.Before(p.nextAttempt) {
		return
	}

	cause := errSourceStopped
	err := p.engine.Restart()
	if err != nil {
		cause = err
	}
	p.failures++
	p.nextAttempt = now.Add(calculateBackoff(p.failures, p.base))
	p.store.RecordSource(cause)

	msg := "source stopped, restarted"
	if err != nil {
		msg = "source restart failed"
	}
	p.logger.Warn(msg,
		"error", cause,
		"failures", p.failures,
		"retry_in", p.nextAttempt.Sub(now).String(),
	)
}

// calculateBackoff returns base doubled once per failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

func pollInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return defaultPollInterval
	}
	return max(interval, minPollInterval)
}
