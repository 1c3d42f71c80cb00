package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIllegalTrace is returned for raw lines that cannot be parsed into a Trace.
var ErrIllegalTrace = errors.New("illegal trace")

// Fixed offsets of the logcat "time" format:
//
//	01-02 15:04:05.678 D/Tag( 1234): message
const (
	timestampEnd   = 18
	levelIndex     = 19
	separatorIndex = 20
	bodyStart      = 21
	minLineLength  = bodyStart
)

const levelSeparator = '/'

// Trace is one parsed log line.
type Trace struct {
	Level     Level
	Timestamp string
	PID       int
	Tag       string
	Message   string
	Raw       string
}

// Parse builds a Trace from a raw logcat line.
func Parse(raw string) (Trace, error) {
	if len(raw) < minLineLength {
		return Trace{}, fmt.Errorf("%w: line too short (%d bytes)", ErrIllegalTrace, len(raw))
	}
	if raw[separatorIndex] != levelSeparator {
		return Trace{}, fmt.Errorf("%w: missing level separator", ErrIllegalTrace)
	}
	level, err := ParseLevel(raw[levelIndex])
	if err != nil {
		return Trace{}, err
	}

	tag, pid, message := splitBody(raw[bodyStart:])
	return Trace{
		Level:     level,
		Timestamp: raw[:timestampEnd],
		PID:       pid,
		Tag:       tag,
		Message:   message,
		Raw:       raw,
	}, nil
}

// splitBody separates "Tag( 1234): message". Bodies without that header are
// returned whole as the message.
func splitBody(body string) (tag string, pid int, message string) {
	end := strings.Index(body, "):")
	if end < 0 {
		return "", 0, body
	}
	open := strings.LastIndexByte(body[:end], '(')
	if open < 0 {
		return "", 0, body
	}
	n, err := strconv.Atoi(strings.TrimSpace(body[open+1 : end]))
	if err != nil {
		return "", 0, body
	}
	message = strings.TrimPrefix(body[end+2:], " ")
	return strings.TrimSpace(body[:open]), n, message
}

// String returns the original raw line.
func (t Trace) String() string {
	return t.Raw
}
