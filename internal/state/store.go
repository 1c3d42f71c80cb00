package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/lynx/internal/trace"
)

// Snapshot represents the traces and source health available to the UI.
type Snapshot struct {
	Traces []trace.Trace

	Received  int // traces appended since start
	Batches   int
	Dropped   int // traces trimmed to stay within the limit
	LastBatch time.Time
	// Version changes on every mutation so renderers can skip unchanged data.
	Version uint64

	LastError           error
	ConsecutiveFailures int // source restarts that failed in a row
}

// IsOffline returns true when the source failed to restart more than once.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store keeps the most recent traces for display. The zero value keeps
// every trace; use NewStore or SetLimit to bound it.
type Store struct {
	mu       sync.RWMutex
	limit    int
	snapshot Snapshot
}

// NewStore returns a Store holding at most limit traces.
func NewStore(limit int) *Store {
	return &Store{limit: limit}
}

// Append adds a batch and trims the oldest traces beyond the limit.
func (s *Store) Append(batch []trace.Trace) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Traces = append(s.snapshot.Traces, batch...)
	s.snapshot.Received += len(batch)
	s.snapshot.Batches++
	s.snapshot.LastBatch = time.Now()
	s.trimLocked()
	s.snapshot.Version++
}

// SetLimit changes the maximum number of traces kept, trimming immediately.
// A limit of zero or less keeps everything.
func (s *Store) SetLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit == s.limit {
		return
	}
	s.limit = limit
	s.trimLocked()
	s.snapshot.Version++
}

// Limit returns the current maximum.
func (s *Store) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

// Clear drops every stored trace. Counters are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Traces = nil
	s.snapshot.Version++
}

// RecordSource notes the outcome of a source restart. When err is non-nil the
// failure is counted; a nil err resets the count.
func (s *Store) RecordSource(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
	} else {
		s.snapshot.LastError = nil
		s.snapshot.ConsecutiveFailures = 0
	}
	s.snapshot.Version++
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Traces = cloneTraces(s.snapshot.Traces)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) trimLocked() {
	if s.limit <= 0 {
		return
	}
	excess := len(s.snapshot.Traces) - s.limit
	if excess <= 0 {
		return
	}
	s.snapshot.Traces = cloneTraces(s.snapshot.Traces[excess:])
	s.snapshot.Dropped += excess
}

func cloneTraces(items []trace.Trace) []trace.Trace {
	if len(items) == 0 {
		return nil
	}
	dup := make([]trace.Trace, len(items))
	copy(dup, items)
	return dup
}
