package app

import (
	"bufio"
	"io"
	"sync"

	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/state"
	"github.com/five82/lynx/internal/trace"
)

// storeListener keeps delivered batches for the TUI and tells it to redraw.
type storeListener struct {
	store  *state.Store
	notify func()
}

func newStoreListener(store *state.Store, notify func()) *storeListener {
	return &storeListener{store: store, notify: notify}
}

func (l *storeListener) OnNewTraces(traces []trace.Trace) {
	l.store.Append(traces)
	if l.notify != nil {
		l.notify()
	}
}

// printer writes each trace as its original line.
type printer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	logger *logging.Logger
	failed bool
}

func newPrinter(w io.Writer, logger *logging.Logger) *printer {
	return &printer{w: bufio.NewWriter(w), logger: logger}
}

func (p *printer) OnNewTraces(traces []trace.Trace) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range traces {
		_, _ = p.w.WriteString(t.String())
		_ = p.w.WriteByte('\n')
	}
	if err := p.w.Flush(); err != nil && !p.failed {
		// Usually a closed pipe; report once.
		p.failed = true
		p.logger.Warn("write traces failed", "error", err)
	}
}
