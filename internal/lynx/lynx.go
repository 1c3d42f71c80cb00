package lynx

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/trace"
)

// Lynx reads raw lines from a Source, keeps the ones that pass the active
// Config and hands them to listeners in batches, at most once per sampling
// interval.
type Lynx struct {
	spawn      Spawner
	dispatcher Dispatcher
	clock      Clock
	logger     *logging.Logger

	// lifecycle serializes Start, Stop and Restart.
	lifecycle sync.Mutex
	source    Source
	onLine    LineFunc

	// mu guards the buffer, the gate timestamp and the config.
	mu               sync.Mutex
	config           Config
	pending          []trace.Trace
	lastNotification time.Time

	listenersMu sync.Mutex
	listeners   atomic.Pointer[[]Listener]
}

// Option customizes a Lynx.
type Option func(*Lynx)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(l *Lynx) { l.clock = c }
}

// WithLogger sets the logger used for discarded lines and listener panics.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Lynx) { l.logger = logger }
}

// WithConfig sets the initial config.
func WithConfig(cfg Config) Option {
	return func(l *Lynx) { l.config = cfg }
}

// New builds a Lynx that spawns its producer with spawn and delivers batches
// through dispatcher. Nothing is read until Start is called.
func New(spawn Spawner, dispatcher Dispatcher, opts ...Option) *Lynx {
	l := &Lynx{
		spawn:      spawn,
		dispatcher: dispatcher,
		clock:      SystemClock{},
		logger:     logging.Nop(),
		config:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.onLine = l.ingest
	l.listeners.Store(&[]Listener{})
	return l
}

// SetConfig replaces the active config. Lines ingested after SetConfig
// returns are filtered with cfg.
func (l *Lynx) SetConfig(cfg Config) {
	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
}

// Config returns a copy of the active config.
func (l *Lynx) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Clone()
}

// Start attaches the ingest callback and starts the source unless it is
// already running.
func (l *Lynx) Start() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.source == nil {
		l.source = l.spawn()
	}
	if l.source.Running() {
		return nil
	}
	if err := l.source.Start(l.onLine); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	return nil
}

// Stop stops the source. Buffered traces, config and listeners are kept for
// a later Start or Restart.
func (l *Lynx) Stop() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.source != nil {
		l.source.Stop()
	}
}

// Restart replaces the source with a freshly spawned one carrying the same
// callback and resets the sampling gate, so the next trace is delivered
// without waiting out the previous interval.
func (l *Lynx) Restart() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	onLine := l.onLine
	if l.source != nil {
		l.source.Stop()
	}
	l.source = l.spawn()

	l.mu.Lock()
	l.lastNotification = time.Time{}
	l.mu.Unlock()

	if err := l.source.Start(onLine); err != nil {
		return fmt.Errorf("restart source: %w", err)
	}
	return nil
}

// Running reports whether the current source is producing lines.
func (l *Lynx) Running() bool {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	return l.source != nil && l.source.Running()
}

// RegisterListener adds listener. Registering the same listener twice has no
// effect. Listeners whose type cannot be compared are logged and ignored.
func (l *Lynx) RegisterListener(listener Listener) {
	if listener == nil {
		return
	}
	if !reflect.TypeOf(listener).Comparable() {
		l.logger.Warn("listener ignored, type is not comparable", "type", fmt.Sprintf("%T", listener))
		return
	}
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()

	current := *l.listeners.Load()
	for _, existing := range current {
		if existing == listener {
			return
		}
	}
	next := make([]Listener, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, listener)
	l.listeners.Store(&next)
}

// UnregisterListener removes listener. Batches whose delivery task has not
// started yet will not reach it.
func (l *Lynx) UnregisterListener(listener Listener) {
	if listener == nil || !reflect.TypeOf(listener).Comparable() {
		return
	}
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()

	current := *l.listeners.Load()
	next := make([]Listener, 0, len(current))
	for _, existing := range current {
		if existing != listener {
			next = append(next, existing)
		}
	}
	l.listeners.Store(&next)
}

// Flush delivers buffered traces if the sampling gate is open, without
// waiting for another line.
func (l *Lynx) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifyLocked()
}

// Pending returns the number of buffered traces awaiting delivery.
func (l *Lynx) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Lynx) ingest(line string) {
	t, err := trace.Parse(line)
	if err != nil {
		l.logger.Debug("discarding line", "error", err)
		return
	}

	l.mu.Lock()
	cfg := l.config
	l.mu.Unlock()

	add := shouldAdd(t, line, cfg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if add {
		l.pending = append(l.pending, t)
	}
	l.notifyLocked()
}

// shouldAdd applies the minimum level and, when set, the case-insensitive
// text filter against the whole raw line.
func shouldAdd(t trace.Trace, line string, cfg Config) bool {
	if !t.Level.Satisfies(cfg.FilterTraceLevel()) {
		return false
	}
	if !cfg.HasFilter() {
		return true
	}
	return strings.Contains(strings.ToLower(line), strings.ToLower(cfg.Filter()))
}

// notifyLocked must be called with mu held.
func (l *Lynx) notifyLocked() {
	if len(l.pending) == 0 {
		return
	}
	now := l.clock.Now()
	if now.Sub(l.lastNotification) <= l.config.SamplingRate() {
		return
	}
	batch := l.pending
	l.pending = nil
	l.dispatcher.Post(func() { l.deliver(batch) })
	l.lastNotification = now
}

func (l *Lynx) deliver(batch []trace.Trace) {
	for _, listener := range *l.listeners.Load() {
		l.safeCall(listener, batch)
	}
}

func (l *Lynx) safeCall(listener Listener, batch []trace.Trace) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("listener panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	listener.OnNewTraces(batch)
}
