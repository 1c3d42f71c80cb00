package lynx

import (
	"context"
	"sync"
)

// Loop is a Dispatcher backed by an unbounded FIFO. Tasks run on whichever
// goroutine calls Run.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// NewLoop returns an idle Loop. Tasks posted before Run starts are kept.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues task without blocking.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted tasks in order until ctx is cancelled. Tasks still
// queued at cancellation are discarded.
func (l *Loop) Run(ctx context.Context) {
	for {
		for _, task := range l.drain() {
			if ctx.Err() != nil {
				return
			}
			task()
		}
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	tasks := l.tasks
	l.tasks = nil
	return tasks
}
