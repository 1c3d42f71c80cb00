package lynx

import (
	"time"

	"github.com/five82/lynx/internal/trace"
)

// LineFunc receives raw lines from a Source, on the source's own goroutine.
type LineFunc func(line string)

// Source is a running log producer. Start begins reading in the background
// and must not call onLine synchronously.
type Source interface {
	Start(onLine LineFunc) error
	Stop()
	Running() bool
}

// Spawner returns a fresh, not yet started Source with the same launch
// parameters every time it is called.
type Spawner func() Source

// Listener receives batches of accepted traces in ingestion order. Batches
// are never empty. Implementations must be comparable (typically pointers)
// so they can be unregistered; RegisterListener ignores any that are not.
type Listener interface {
	OnNewTraces(traces []trace.Trace)
}

// Dispatcher runs delivery tasks on a single designated goroutine, in the
// order they were posted. Post must not block.
type Dispatcher interface {
	Post(task func())
}

// Clock supplies the current time for the sampling gate.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }
