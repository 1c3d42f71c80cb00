// Package config loads the lynx TOML configuration and reloads it when the
// file changes.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/lynx/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// # Default Values
//
//   - Command: adb logcat -v time
//   - Backfill: 400 lines (only used with file)
//   - Level: VERBOSE (no level filter)
//   - Sampling: 300ms
//   - Max traces: 2500
//   - Log file: ~/.local/state/lynx/lynx.log
//   - Log level: info
//
// # TOML Format
//
//	command = ["adb", "-s", "emulator-5554", "logcat", "-v", "time"]
//	# file = "~/captures/device.log"
//	backfill = 400
//	filter = "Network"
//	level = "warn"
//	sampling_ms = 300
//	max_traces = 2500
//	theme = "dark"
//	log_file = "~/.local/state/lynx/lynx.log"
//	log_level = "info"
//
// Every field is optional. Tilde expansion is performed for file and
// log_file. Negative numbers and unknown level names fail the load.
//
// FilterConfig converts the filtering fields into a lynx.Config for the
// engine.
//
// # Hot Reload
//
// Watch follows the config file with fsnotify. It watches the containing
// directory, so editors that save by replacing the file are handled, and
// debounces bursts of events for 100ms before reloading. A file that fails
// to parse, or is briefly missing, is logged and skipped; the last good
// settings stay in effect.
package config
