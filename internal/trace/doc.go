// Package trace parses raw logcat lines into typed traces.
//
// # Overview
//
// A trace is one line emitted by the log producer, classified by severity.
// Lines use the logcat "time" format, where every field sits at a fixed
// offset:
//
//	01-02 15:04:05.678 D/Tag( 1234): message
//	└──── [0,18) ────┘ │└ separator at 20
//	                   └ severity code at 19
//
// # Levels
//
// Level is a total order:
//
//	Verbose < Debug < Info < Warning < Error < Assert
//
// Each level owns a one-letter code (V D I W E A). The logcat fatal code F
// is read as Assert. Any other code is a parse failure; there is no default
// level.
//
// Satisfies implements the minimum-level filter. Verbose is a pass-all
// filter and short-circuits before the ordinal comparison.
//
// # Errors
//
// Parse fails with an error wrapping ErrIllegalTrace when the line is too
// short, lacks the separator, or carries an unknown code. Callers drop such
// lines; nothing partial is ever returned.
package trace
