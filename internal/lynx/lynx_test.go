package lynx

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/five82/lynx/internal/trace"
)

const (
	debugLine   = "01-02 15:04:05.678 D/Network( 100): request sent"
	infoLine    = "01-02 15:04:05.679 I/Network( 100): Response OK"
	errorLine   = "01-02 15:04:05.680 E/Database( 200): query failed"
	verboseLine = "01-02 15:04:05.681 V/Choreographer( 300): frame"
)

type fakeSource struct {
	mu       sync.Mutex
	running  bool
	starts   int
	stops    int
	onLine   LineFunc
	startErr error
}

func (s *fakeSource) Start(onLine LineFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	s.running = true
	s.onLine = onLine
	return nil
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.running = false
}

func (s *fakeSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// emit simulates the producer goroutine delivering a line.
func (s *fakeSource) emit(line string) {
	s.mu.Lock()
	onLine := s.onLine
	s.mu.Unlock()
	onLine(line)
}

type fakeSpawner struct {
	sources []*fakeSource
}

func (f *fakeSpawner) spawn() Source {
	src := &fakeSource{}
	f.sources = append(f.sources, src)
	return src
}

func (f *fakeSpawner) last() *fakeSource {
	return f.sources[len(f.sources)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// queueDispatcher holds tasks until the test runs them.
type queueDispatcher struct {
	mu    sync.Mutex
	tasks []func()
}

func (d *queueDispatcher) Post(task func()) {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
}

func (d *queueDispatcher) Posted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

func (d *queueDispatcher) RunAll() {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

type recordingListener struct {
	mu      sync.Mutex
	batches [][]trace.Trace
}

func (r *recordingListener) OnNewTraces(traces []trace.Trace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, traces)
}

func (r *recordingListener) Batches() [][]trace.Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]trace.Trace(nil), r.batches...)
}

type panickingListener struct{}

func (*panickingListener) OnNewTraces([]trace.Trace) { panic("boom") }

type harness struct {
	lynx       *Lynx
	spawner    *fakeSpawner
	clock      *fakeClock
	dispatcher *queueDispatcher
	listener   *recordingListener
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		spawner:    &fakeSpawner{},
		clock:      newFakeClock(),
		dispatcher: &queueDispatcher{},
		listener:   &recordingListener{},
	}
	h.lynx = New(h.spawner.spawn, h.dispatcher, WithClock(h.clock), WithConfig(cfg))
	h.lynx.RegisterListener(h.listener)
	if err := h.lynx.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return h
}

// primeGate delivers one trace so the gate timestamp is "now".
func (h *harness) primeGate(t *testing.T) {
	t.Helper()
	h.spawner.last().emit(infoLine)
	h.dispatcher.RunAll()
	h.listener.mu.Lock()
	h.listener.batches = nil
	h.listener.mu.Unlock()
}

func TestStart_StartsSourceOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	if err := h.lynx.Start(); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if len(h.spawner.sources) != 1 {
		t.Fatalf("spawned %d sources, want 1", len(h.spawner.sources))
	}
	if got := h.spawner.last().starts; got != 1 {
		t.Fatalf("source started %d times, want 1", got)
	}
	if !h.lynx.Running() {
		t.Fatal("Running() = false, want true")
	}
}

func TestStart_PropagatesSourceError(t *testing.T) {
	wantErr := errors.New("adb not found")
	spawn := func() Source { return &fakeSource{startErr: wantErr} }
	l := New(spawn, &queueDispatcher{})

	err := l.Start()
	if !errors.Is(err, wantErr) {
		t.Fatalf("Start error = %v, want %v", err, wantErr)
	}
}

func TestIngest_FirstTraceIsDeliveredImmediately(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	h.spawner.last().emit(infoLine)
	if got := h.dispatcher.Posted(); got != 1 {
		t.Fatalf("posted %d tasks, want 1", got)
	}
	h.dispatcher.RunAll()

	batches := h.listener.Batches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch with one trace", batches)
	}
	if batches[0][0].Raw != infoLine {
		t.Fatalf("delivered %q, want %q", batches[0][0].Raw, infoLine)
	}
}

func TestIngest_MalformedLineNeverBufferedOrNotified(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	h.spawner.last().emit("--------- beginning of main")
	h.spawner.last().emit("01-02 15:04:05.678 Q/Tag( 1): unknown level")
	h.spawner.last().emit("short")

	if got := h.lynx.Pending(); got != 0 {
		t.Fatalf("Pending() = %d, want 0", got)
	}
	if got := h.dispatcher.Posted(); got != 0 {
		t.Fatalf("posted %d tasks, want 0", got)
	}
}

func TestIngest_SamplingCoalescesBurst(t *testing.T) {
	h := newHarness(t, DefaultConfig().WithSamplingRate(300*time.Millisecond))
	h.primeGate(t)
	src := h.spawner.last()

	h.clock.Advance(100 * time.Millisecond)
	src.emit(debugLine)
	h.clock.Advance(100 * time.Millisecond)
	src.emit(errorLine)
	if got := h.dispatcher.Posted(); got != 0 {
		t.Fatalf("posted %d tasks before the interval elapsed, want 0", got)
	}

	h.clock.Advance(100 * time.Millisecond)
	h.lynx.Flush()
	if got := h.dispatcher.Posted(); got != 0 {
		t.Fatalf("posted %d tasks at exactly the interval, want 0", got)
	}

	h.clock.Advance(time.Millisecond)
	h.lynx.Flush()
	if got := h.dispatcher.Posted(); got != 1 {
		t.Fatalf("posted %d tasks after the interval, want 1", got)
	}
	h.dispatcher.RunAll()

	batches := h.listener.Batches()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if len(batches[0]) != 2 || batches[0][0].Raw != debugLine || batches[0][1].Raw != errorLine {
		t.Fatalf("batch = %v, want [debug error] in order", batches[0])
	}
	if got := h.lynx.Pending(); got != 0 {
		t.Fatalf("Pending() = %d after delivery, want 0", got)
	}
}

func TestIngest_GateOpensOnNextLine(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.primeGate(t)
	src := h.spawner.last()

	src.emit(debugLine)
	h.clock.Advance(301 * time.Millisecond)
	src.emit(errorLine)
	h.dispatcher.RunAll()

	batches := h.listener.Batches()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("batches = %v, want one batch with two traces", batches)
	}
}

func TestIngest_EachTraceDeliveredOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	src := h.spawner.last()

	src.emit(debugLine)
	h.clock.Advance(time.Second)
	src.emit(infoLine)
	h.clock.Advance(time.Second)
	h.lynx.Flush()
	h.dispatcher.RunAll()

	var seen []string
	for _, batch := range h.listener.Batches() {
		for _, tr := range batch {
			seen = append(seen, tr.Raw)
		}
	}
	if len(seen) != 2 || seen[0] != debugLine || seen[1] != infoLine {
		t.Fatalf("delivered %v, want each line once in order", seen)
	}
}

func TestIngest_Filtering(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "no filter accepts everything",
			cfg:  DefaultConfig(),
			want: []string{verboseLine, debugLine, infoLine, errorLine},
		},
		{
			name: "text filter is case-insensitive",
			cfg:  DefaultConfig().WithFilter("NETWORK"),
			want: []string{debugLine, infoLine},
		},
		{
			name: "text filter matches the whole raw line",
			cfg:  DefaultConfig().WithFilter("e/database"),
			want: []string{errorLine},
		},
		{
			name: "text and level must both match",
			cfg:  DefaultConfig().WithFilter("network").WithFilterTraceLevel(trace.Info),
			want: []string{infoLine},
		},
		{
			name: "level alone filters",
			cfg:  DefaultConfig().WithFilterTraceLevel(trace.Info),
			want: []string{infoLine, errorLine},
		},
		{
			name: "verbose level with text keeps all matching levels",
			cfg:  DefaultConfig().WithFilter("(").WithFilterTraceLevel(trace.Verbose),
			want: []string{verboseLine, debugLine, infoLine, errorLine},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cfg)
			h.primeGateWith(t, tt.cfg)
			src := h.spawner.last()
			for _, line := range []string{verboseLine, debugLine, infoLine, errorLine} {
				src.emit(line)
			}
			h.clock.Advance(time.Second)
			h.lynx.Flush()
			h.dispatcher.RunAll()

			var got []string
			for _, batch := range h.listener.Batches() {
				for _, tr := range batch {
					got = append(got, tr.Raw)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("delivered %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("delivered[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// primeGateWith closes the gate without relying on a line that passes cfg.
func (h *harness) primeGateWith(t *testing.T, cfg Config) {
	t.Helper()
	h.lynx.SetConfig(DefaultConfig())
	h.primeGate(t)
	h.lynx.SetConfig(cfg)
}

func TestSetConfig_AppliesToLaterLines(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.primeGate(t)
	src := h.spawner.last()

	src.emit(debugLine)
	h.lynx.SetConfig(DefaultConfig().WithFilter("database"))
	src.emit(infoLine)
	src.emit(errorLine)

	h.clock.Advance(time.Second)
	h.lynx.Flush()
	h.dispatcher.RunAll()

	batches := h.listener.Batches()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("batches = %v, want one batch of [debug error]", batches)
	}
	if batches[0][0].Raw != debugLine || batches[0][1].Raw != errorLine {
		t.Fatalf("batch = %v, want [debug error]", batches[0])
	}
}

func TestConfig_ReturnsCopy(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	cfg := h.lynx.Config()
	_ = cfg.WithFilter("database")
	mutated := cfg.WithFilterTraceLevel(trace.Assert)

	if got := h.lynx.Config(); got.HasFilter() || got.FilterTraceLevel() != trace.Verbose {
		t.Fatalf("engine config changed through a returned copy: %+v", got)
	}
	if mutated.FilterTraceLevel() != trace.Assert {
		t.Fatalf("builder did not apply to the copy")
	}
}

func TestRestart_SpawnsFreshSourceAndResetsGate(t *testing.T) {
	h := newHarness(t, DefaultConfig().WithFilter("network"))
	h.primeGate(t)
	old := h.spawner.last()

	if err := h.lynx.Restart(); err != nil {
		t.Fatalf("Restart returned error: %v", err)
	}
	if old.Running() || old.stops != 1 {
		t.Fatalf("old source running=%v stops=%d, want stopped once", old.Running(), old.stops)
	}
	if len(h.spawner.sources) != 2 {
		t.Fatalf("spawned %d sources, want 2", len(h.spawner.sources))
	}
	fresh := h.spawner.last()
	if !fresh.Running() {
		t.Fatal("fresh source not started")
	}

	// No time has passed since the priming delivery; only the reset gate lets
	// this through.
	fresh.emit(debugLine)
	if got := h.dispatcher.Posted(); got != 1 {
		t.Fatalf("posted %d tasks after restart, want 1", got)
	}
	h.dispatcher.RunAll()

	batches := h.listener.Batches()
	if len(batches) != 1 || batches[0][0].Raw != debugLine {
		t.Fatalf("batches = %v, want the debug line delivered to the existing listener", batches)
	}
	if !h.lynx.Config().HasFilter() {
		t.Fatal("Restart dropped the filter config")
	}
}

func TestStop_KeepsStateForRestart(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.primeGate(t)
	h.spawner.last().emit(debugLine)

	h.lynx.Stop()
	if h.lynx.Running() {
		t.Fatal("Running() = true after Stop")
	}
	if got := h.lynx.Pending(); got != 1 {
		t.Fatalf("Pending() = %d after Stop, want 1", got)
	}

	if err := h.lynx.Start(); err != nil {
		t.Fatalf("Start after Stop returned error: %v", err)
	}
	if got := h.spawner.last().starts; got != 2 {
		t.Fatalf("source started %d times, want 2", got)
	}
}

func TestUnregister_BeforeDeliveryRuns(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	other := &recordingListener{}
	h.lynx.RegisterListener(other)

	h.spawner.last().emit(infoLine)
	h.lynx.UnregisterListener(h.listener)
	h.dispatcher.RunAll()

	if got := len(h.listener.Batches()); got != 0 {
		t.Fatalf("unregistered listener got %d batches, want 0", got)
	}
	if got := len(other.Batches()); got != 1 {
		t.Fatalf("remaining listener got %d batches, want 1", got)
	}
}

func TestRegister_DuplicateIgnored(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.lynx.RegisterListener(h.listener)

	h.spawner.last().emit(infoLine)
	h.dispatcher.RunAll()

	if got := len(h.listener.Batches()); got != 1 {
		t.Fatalf("listener got %d batches, want 1", got)
	}
}

// sliceListener is a value type holding a slice, so it cannot be compared.
type sliceListener struct {
	seen *[][]trace.Trace
	tags []string
}

func (s sliceListener) OnNewTraces(traces []trace.Trace) {
	*s.seen = append(*s.seen, traces)
}

func TestRegister_NonComparableListenerIgnored(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	var seen [][]trace.Trace
	bad := sliceListener{seen: &seen, tags: []string{"a"}}

	h.lynx.RegisterListener(bad)
	h.lynx.RegisterListener(sliceListener{seen: &seen, tags: []string{"b"}})
	h.lynx.UnregisterListener(bad)

	h.spawner.last().emit(infoLine)
	h.dispatcher.RunAll()

	if len(seen) != 0 {
		t.Fatalf("non-comparable listener got %d batches, want 0", len(seen))
	}
	if got := len(h.listener.Batches()); got != 1 {
		t.Fatalf("listener got %d batches, want 1", got)
	}
}

func TestDeliver_PanickingListenerDoesNotStopOthers(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.lynx.UnregisterListener(h.listener)
	h.lynx.RegisterListener(&panickingListener{})
	h.lynx.RegisterListener(h.listener)

	h.spawner.last().emit(infoLine)
	h.dispatcher.RunAll()

	if got := len(h.listener.Batches()); got != 1 {
		t.Fatalf("listener after panicking one got %d batches, want 1", got)
	}
}

func TestFlush_EmptyBufferPostsNothing(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.clock.Advance(time.Hour)
	h.lynx.Flush()
	if got := h.dispatcher.Posted(); got != 0 {
		t.Fatalf("posted %d tasks for an empty buffer, want 0", got)
	}
}

func TestIngest_ConcurrentWithReconfigure(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	src := h.spawner.last()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			src.emit(infoLine)
			h.clock.Advance(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				h.lynx.SetConfig(DefaultConfig().WithFilter("network"))
			} else {
				h.lynx.SetConfig(DefaultConfig())
			}
			_ = h.lynx.Config()
		}
	}()
	wg.Wait()

	h.clock.Advance(time.Second)
	h.lynx.Flush()
	h.dispatcher.RunAll()

	total := 0
	for _, batch := range h.listener.Batches() {
		if len(batch) == 0 {
			t.Fatal("delivered an empty batch")
		}
		total += len(batch)
	}
	if total != 500 {
		t.Fatalf("delivered %d traces, want 500", total)
	}
}
