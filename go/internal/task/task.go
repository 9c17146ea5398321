// Package task runs periodic work as independently cancellable loops.
//
// Each Task owns its timer and its cancellation. An iteration never overlaps
// the previous one: the next timer is armed only after the iteration returns,
// so a stalled store call delays the loop instead of piling up requests.
// Stop cancels the loop and waits for an in-flight iteration, so nothing the
// task does can happen after Stop returns.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Func is one iteration. Returning false ends the task.
type Func func(ctx context.Context) bool

// Task is a periodic loop driven by a clockwork clock.
type Task struct {
	name  string
	clock clockwork.Clock
	fn    Func

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	started  bool

	done chan struct{}
}

// New creates a task that calls fn every interval once started.
func New(name string, clock clockwork.Clock, interval time.Duration, fn Func) *Task {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Task{
		name:     name,
		clock:    clock,
		fn:       fn,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. The first iteration runs one interval after Start.
// Calling Start more than once has no effect.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	go t.run(ctx)
}

// SetInterval changes the delay used after the current iteration.
func (t *Task) SetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
}

// Interval returns the current delay between iterations.
func (t *Task) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Stop cancels the loop and waits for it to exit. It must not be called
// from inside the task's own Func; return false there instead.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.started {
		t.started = true
		close(t.done)
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-t.done
}

// Done is closed once the loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) run(ctx context.Context) {
	defer close(t.done)

	log.Debug().Str("task", t.name).Dur("interval", t.Interval()).Msg("task started")

	timer := t.clock.NewTimer(t.Interval())
	defer stopAndDrainTimer(timer)

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("task", t.name).Msg("task cancelled")
			return
		case <-timer.Chan():
		}

		if ctx.Err() != nil {
			return
		}
		if !t.fn(ctx) {
			log.Debug().Str("task", t.name).Msg("task finished")
			return
		}
		timer.Reset(t.Interval())
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
