// Package ui provides the terminal viewer for lynx, built on Bubble Tea.
//
// # Architecture Overview
//
// The UI shows the traces kept in a state.Store and drives the engine through
// the Controller interface. It never touches the source or the listener set
// directly.
//
// # Package Structure
//
//   - app.go: Model, Update loop, key handling and Run
//   - traces.go: viewport content, header and status bar rendering
//   - keys.go: key bindings (bubbles/key)
//   - help.go: help overlay generated from the key map
//   - theme.go: color themes, including per-level colors
//   - style_helpers.go: background-safe rendering helpers
//
// # Event Flow
//
//  1. The app registers a listener that appends each batch to the Store and
//     calls Program.Send(RefreshMsg{}) from the delivery goroutine
//  2. RefreshMsg triggers a snapshot fetch as a tea.Cmd
//  3. The snapshot, the engine config and the source state arrive as one
//     message and the viewport is re-rendered if the store version changed
//  4. A one-second tick refreshes the status bar when no traces arrive
//
// # Key Bindings
//
//   - /: Edit the text filter, enter applies, esc cancels
//   - esc: Remove the text filter
//   - + and -: Raise or lower the minimum level
//   - r: Restart the source
//   - c: Clear the stored traces
//   - f: Toggle follow mode; G jumps to the bottom and follows
//   - T: Cycle theme
//   - ?: Help
//   - q or Ctrl+C: Quit
//
// Filter and level changes reach the engine through SetConfig and only
// affect traces read afterwards. They are saved to the preferences file
// together with the theme.
package ui
