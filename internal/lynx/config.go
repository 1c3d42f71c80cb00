package lynx

import (
	"fmt"
	"time"

	"github.com/five82/lynx/internal/trace"
)

const (
	defaultSamplingRate    = 300 * time.Millisecond
	defaultMaxTracesToShow = 2500
)

// Config is the active filter and delivery policy. It is a value type: the
// With methods return modified copies and never touch the receiver.
type Config struct {
	filter          string
	filterLevel     trace.Level
	samplingRate    time.Duration
	maxTracesToShow int
}

// DefaultConfig accepts every trace and samples every 300ms.
func DefaultConfig() Config {
	return Config{
		filterLevel:     trace.Verbose,
		samplingRate:    defaultSamplingRate,
		maxTracesToShow: defaultMaxTracesToShow,
	}
}

// WithFilter sets the case-insensitive substring filter.
func (c Config) WithFilter(filter string) Config {
	c.filter = filter
	return c
}

// WithFilterTraceLevel sets the minimum level.
func (c Config) WithFilterTraceLevel(level trace.Level) Config {
	c.filterLevel = level
	return c
}

// WithSamplingRate sets the minimum time between two deliveries.
func (c Config) WithSamplingRate(rate time.Duration) Config {
	c.samplingRate = rate
	return c
}

// WithMaxTracesToShow sets how many traces a presentation layer keeps.
func (c Config) WithMaxTracesToShow(n int) Config {
	c.maxTracesToShow = n
	return c
}

func (c Config) Filter() string                { return c.filter }
func (c Config) FilterTraceLevel() trace.Level { return c.filterLevel }
func (c Config) SamplingRate() time.Duration   { return c.samplingRate }
func (c Config) MaxTracesToShow() int          { return c.maxTracesToShow }

// HasFilter reports whether a non-empty text filter is set.
func (c Config) HasFilter() bool {
	return c.filter != ""
}

// Clone returns an independent copy.
func (c Config) Clone() Config {
	return c
}

// Validate rejects non-positive sampling rates and trace limits.
func (c Config) Validate() error {
	if c.samplingRate <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %v", c.samplingRate)
	}
	if c.maxTracesToShow <= 0 {
		return fmt.Errorf("max traces to show must be positive, got %d", c.maxTracesToShow)
	}
	if c.filterLevel > trace.Assert {
		return fmt.Errorf("unknown filter level %d", c.filterLevel)
	}
	return nil
}
