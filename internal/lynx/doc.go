// Package lynx is the processing core of the log viewer: it turns a stream
// of raw lines into filtered, rate-limited batches of traces.
//
// # Overview
//
// A Lynx owns four things:
//
//   - the current Source, a background producer of raw lines
//   - the active Config (text filter, minimum level, sampling rate)
//   - the buffer of accepted traces awaiting delivery
//   - the set of registered listeners
//
// # Data Flow
//
//	Source goroutine                 Lynx                         Dispatcher goroutine
//	┌──────────────┐  raw line  ┌────────────────────┐  batch  ┌──────────────────────┐
//	│ Start(onLine)│───────────>│ trace.Parse        │────────>│ listener.OnNewTraces │
//	└──────────────┘            │ filter (Config)    │  Post   └──────────────────────┘
//	                            │ append (mu)        │
//	                            │ gate: now - last > │
//	                            │   SamplingRate     │
//	                            └────────────────────┘
//
// Malformed lines are dropped before they reach the buffer. Accepted traces
// are appended under the engine lock. When the gate is open the whole buffer
// is swapped out, posted to the Dispatcher, and the gate timestamp is set to
// the enqueue time. Bursts arriving while the gate is closed are coalesced
// into the next batch.
//
// # Filtering
//
// A trace is kept when its level satisfies the minimum level and, if a text
// filter is set, the lower-cased raw line contains the lower-cased filter.
//
// # Concurrency Model
//
// Three contexts touch a Lynx:
//
//   - the source goroutine calling the ingest callback
//   - the dispatcher goroutine running delivery tasks
//   - control callers (SetConfig, Restart, RegisterListener, Flush)
//
// mu guards the buffer, the gate timestamp and the config pointer. Parsing and
// filtering run outside it. Post is called under mu so batches reach the
// dispatcher in ingestion order; Dispatcher implementations must not block.
//
// Listeners live in a copy-on-write slice. A delivery task reads the slice
// when it runs, so a listener removed before its task starts never sees that
// batch. A panicking listener is logged and skipped.
//
// # Lifecycle
//
// Start spawns a source when there is none and starts it unless it is
// already running. Stop stops it and keeps everything else. Restart stops
// and discards the source, spawns a fresh one with the same callback, resets
// the gate so the next trace is delivered without waiting, and starts it.
//
// Loop is the default Dispatcher: an unbounded FIFO drained by Run on a
// single goroutine.
package lynx
