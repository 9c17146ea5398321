package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitForTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("timer was never armed: %v", err)
	}
}

func TestTaskRunsEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	calls := make(chan int, 10)
	var n int

	tk := New("test", clock, 10*time.Millisecond, func(ctx context.Context) bool {
		n++
		calls <- n
		return true
	})
	tk.Start(context.Background())
	defer tk.Stop()

	for i := 1; i <= 3; i++ {
		waitForTimer(t, clock)
		clock.Advance(10 * time.Millisecond)
		select {
		case got := <-calls:
			if got != i {
				t.Errorf("iteration = %d, want %d", got, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("iteration %d never ran", i)
		}
	}
}

func TestTaskDoesNotRunBeforeInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	tk := New("test", clock, 10*time.Millisecond, func(ctx context.Context) bool {
		calls.Add(1)
		return true
	})
	tk.Start(context.Background())

	waitForTimer(t, clock)
	clock.Advance(9 * time.Millisecond)
	tk.Stop()

	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestTaskStopsWhenFuncReturnsFalse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tk := New("test", clock, time.Millisecond, func(ctx context.Context) bool {
		return false
	})
	tk.Start(context.Background())

	waitForTimer(t, clock)
	clock.Advance(time.Millisecond)

	select {
	case <-tk.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish after Func returned false")
	}
	tk.Stop()
}

func TestTaskStopWaitsForInFlightIteration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	tk := New("test", clock, time.Millisecond, func(ctx context.Context) bool {
		close(entered)
		<-release
		finished.Store(true)
		return true
	})
	tk.Start(context.Background())

	waitForTimer(t, clock)
	clock.Advance(time.Millisecond)
	<-entered

	stopped := make(chan struct{})
	go func() {
		tk.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while an iteration was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-stopped
	if !finished.Load() {
		t.Error("in-flight iteration did not complete")
	}
}

func TestTaskNoIterationsAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	tk := New("test", clock, time.Millisecond, func(ctx context.Context) bool {
		calls.Add(1)
		return true
	})
	tk.Start(context.Background())
	waitForTimer(t, clock)
	tk.Stop()

	clock.Advance(time.Second)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls after Stop = %d, want 0", got)
	}
}

func TestTaskSetInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	calls := make(chan struct{}, 10)

	tk := New("test", clock, 100*time.Millisecond, func(ctx context.Context) bool {
		calls <- struct{}{}
		return true
	})
	tk.Start(context.Background())
	defer tk.Stop()

	waitForTimer(t, clock)
	tk.SetInterval(5 * time.Millisecond)
	if got := tk.Interval(); got != 5*time.Millisecond {
		t.Fatalf("Interval() = %v, want 5ms", got)
	}

	// the armed timer keeps the old interval
	clock.Advance(100 * time.Millisecond)
	<-calls

	waitForTimer(t, clock)
	clock.Advance(5 * time.Millisecond)
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("task did not pick up the new interval")
	}
}

func TestStopBeforeStart(t *testing.T) {
	tk := New("test", clockwork.NewFakeClock(), time.Millisecond, func(ctx context.Context) bool {
		t.Error("Func called on a task that was never started")
		return true
	})
	tk.Stop()
	tk.Start(context.Background())

	select {
	case <-tk.Done():
	default:
		t.Error("Done not closed after Stop")
	}
}
