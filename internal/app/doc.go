// Package app provides the orchestration layer for the lynx application.
//
// # Overview
//
// This package wires together configuration, the log source, the trace
// engine, state management and the UI. It serves as the composition root
// where all dependencies are initialized and connected.
//
// # Architecture
//
//  1. Load ~/.config/lynx/config.toml and, in TUI mode, the saved prefs
//  2. Apply command line overrides and build the engine config
//  3. Open the log file (the terminal belongs to the TUI)
//  4. Start a lynx.Loop on its own goroutine as the delivery dispatcher
//  5. Build the engine with a logcat or logtail spawner
//  6. Register the store listener, and the printer in plain mode
//  7. Start the source, the poller and the config watcher
//  8. Run the TUI, or block until the context ends
//
// # Components
//
//   - app.go: Run, option handling and plain mode shutdown
//   - listeners.go: the store listener and the plain printer
//   - poller.go: periodic Flush and source supervision with backoff
//
// # Data Flow
//
//	source goroutine ──> Lynx.ingest ──> buffer ──> Loop.Post
//	                                                   │
//	                          Loop goroutine <─────────┘
//	                           ├─> storeListener: store.Append, Program.Send
//	                           └─> printer: stdout (plain mode)
//
//	poller goroutine ──> Lynx.Flush every sampling interval
//	                 └─> Lynx.Restart when the source stopped
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file unreadable or invalid
//   - Invalid command line overrides
//   - Log file cannot be opened
//   - The source fails to start the first time
//   - The TUI fails
//
// Recoverable errors (logged, processing continues):
//   - The source exits; the poller restarts it with exponential backoff
//     starting at one second and capped at 30 seconds
//   - A reloaded config is invalid; the previous settings stay in effect
//   - Writing to stdout fails in plain mode
//
// After two consecutive restarts the store reports the source offline and
// the header shows it.
package app
