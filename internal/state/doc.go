// Package state holds the traces the viewer displays, shared between the
// delivery goroutine and the UI.
//
// # Overview
//
// The lynx engine hands accepted traces to listeners in batches. The app
// registers a listener that appends each batch to a Store; the UI reads a
// Snapshot whenever it renders.
//
//	Producer (Loop goroutine):     Consumer (UI):
//	┌──────────────────┐          ┌──────────────────┐
//	│ OnNewTraces()    │          │                  │
//	│      ↓           │          │                  │
//	│ store.Append()   │─────────→│ store.Snapshot() │
//	│      ↓           │ (mutex)  │      ↓           │
//	│ program.Send()   │          │  render view     │
//	└──────────────────┘          └──────────────────┘
//
// # Bounded History
//
// A Store keeps at most Limit traces, the engine's MaxTracesToShow. When a
// batch pushes it past the limit the oldest traces are dropped and counted
// in Snapshot.Dropped. SetLimit applies a new limit at once, which is how a
// config reload shrinks the history.
//
// # Source Health
//
// The poller reports restart outcomes through RecordSource. Two failures in
// a row mark the snapshot offline so the status line can say so.
//
// # Concurrency Model
//
// Store uses a sync.RWMutex. Snapshot returns copies of the trace slice and
// the error, so callers may keep or modify them freely.
package state
