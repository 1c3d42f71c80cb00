package trace

import (
	"fmt"
	"strings"
)

// Level is the severity class of a trace. Levels are ordered from the most
// verbose to the most severe.
type Level uint8

const (
	Verbose Level = iota
	Debug
	Info
	Warning
	Error
	Assert
)

var levelNames = [...]string{"VERBOSE", "DEBUG", "INFO", "WARNING", "ERROR", "ASSERT"}

var levelCodes = [...]byte{'V', 'D', 'I', 'W', 'E', 'A'}

// Levels returns every level in ascending order.
func Levels() []Level {
	return []Level{Verbose, Debug, Info, Warning, Error, Assert}
}

// String returns the upper-case level name.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// Code returns the one-character severity code used in raw lines.
func (l Level) Code() byte {
	if int(l) < len(levelCodes) {
		return levelCodes[l]
	}
	return '?'
}

// Satisfies reports whether a trace at level l passes a minimum level filter.
// Verbose accepts everything without comparing ordinals.
func (l Level) Satisfies(min Level) bool {
	if min == Verbose {
		return true
	}
	return l >= min
}

// Next returns the following, more severe level, stopping at Assert.
func (l Level) Next() Level {
	if l >= Assert {
		return Assert
	}
	return l + 1
}

// Prev returns the preceding, more verbose level, stopping at Verbose.
func (l Level) Prev() Level {
	if l == Verbose {
		return Verbose
	}
	return l - 1
}

// ParseLevel maps a severity code to its level. 'F' (fatal) is treated as
// Assert.
func ParseLevel(code byte) (Level, error) {
	switch code {
	case 'V':
		return Verbose, nil
	case 'D':
		return Debug, nil
	case 'I':
		return Info, nil
	case 'W':
		return Warning, nil
	case 'E':
		return Error, nil
	case 'A', 'F':
		return Assert, nil
	}
	return Verbose, fmt.Errorf("%w: unknown level code %q", ErrIllegalTrace, code)
}

// ParseLevelName parses a level from configuration text. Full names, the
// common "warn" spelling and single-letter codes are accepted in any case.
func ParseLevelName(name string) (Level, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	switch trimmed {
	case "":
		return Verbose, fmt.Errorf("level is empty")
	case "WARN":
		return Warning, nil
	}
	for i, n := range levelNames {
		if n == trimmed {
			return Level(i), nil
		}
	}
	if len(trimmed) == 1 {
		if lvl, err := ParseLevel(trimmed[0]); err == nil {
			return lvl, nil
		}
	}
	return Verbose, fmt.Errorf("unknown level %q", name)
}
