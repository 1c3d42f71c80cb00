// Package logtail reads log files: the tail of a file in one pass, and a
// Follower that keeps streaming appended lines into the lynx engine.
//
// # Overview
//
// Lynx usually reads from a live command, but a saved capture or a log that
// another process keeps writing is just as useful. The Follower covers that
// case and satisfies lynx.Source, so the engine does not know the
// difference.
//
// # Reading the Tail
//
// Read returns the last maxLines lines of a file using a ring buffer of size
// maxLines:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines:
//	   - Return first 'count' entries from buffer
//	4. If total >= maxLines:
//	   - Return buffer starting from current index (oldest line)
//
// Memory is O(maxLines) regardless of file size. Lines up to 1MB are
// accepted; longer lines fail the read.
//
// Only complete lines count. Read first finds the last newline by scanning
// backwards from the end, reads up to it and returns that offset along with
// the lines. A writer caught mid-line leaves its fragment after the offset.
//
// A missing file is not an error: Read returns nil and offset zero so a
// viewer can start before the file exists.
//
// # Following
//
// Follower.Start replays the last N lines through Read and remembers the
// offset it returned. It then watches the containing directory with fsnotify:
//
//   - Write or Create on the file reads from the remembered offset to EOF
//   - a file smaller than the offset was truncated and is read from zero
//   - Remove or Rename resets the offset and waits for the file to return
//
// A trailing fragment without a newline is held back until the rest of the
// line arrives, so the engine only ever sees complete lines.
//
// # Thread Safety
//
// Start, Stop and Running are safe for concurrent use. Lines are delivered
// on the Follower's own goroutine, never from inside Start.
package logtail
