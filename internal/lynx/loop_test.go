package lynx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/five82/lynx/internal/trace"
)

func TestLoop_RunsTasksInPostOrder(t *testing.T) {
	loop := NewLoop()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoop_PostDoesNotBlockWithoutRunner(t *testing.T) {
	loop := NewLoop()
	for i := 0; i < 10000; i++ {
		loop.Post(func() {})
	}
	if got := loop.Pending(); got != 10000 {
		t.Fatalf("Pending() = %d, want 10000", got)
	}
	loop.Post(nil)
	if got := loop.Pending(); got != 10000 {
		t.Fatalf("Pending() = %d after nil task, want 10000", got)
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_DeliversEngineBatches(t *testing.T) {
	loop := NewLoop()
	spawner := &fakeSpawner{}
	l := New(spawner.spawn, loop)

	received := make(chan int, 1)
	l.RegisterListener(&countingListener{sizes: received})
	if err := l.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	spawner.last().emit(infoLine)

	select {
	case n := <-received:
		if n != 1 {
			t.Fatalf("batch size = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

type countingListener struct {
	sizes chan int
}

func (c *countingListener) OnNewTraces(traces []trace.Trace) {
	c.sizes <- len(traces)
}
