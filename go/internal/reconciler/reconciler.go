// Package reconciler mirrors a shared session record into local render state
// by polling it on a role-dependent interval.
package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/task"
)

// Stage is where a participant is in the session's life.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageWaitingRoom Stage = "waiting-room"
	StageLive        Stage = "live"
	StageTerminal    Stage = "terminal"
)

// Intervals are the polling cadences. The authority already holds the state
// it writes, so it polls coarser than its peers.
type Intervals struct {
	WaitingRoom time.Duration `yaml:"waiting_room"`
	Authority   time.Duration `yaml:"authority"`
	Peer        time.Duration `yaml:"peer"`
}

// DefaultPhysicsIntervals returns the cadences for a physics match.
func DefaultPhysicsIntervals() Intervals {
	return Intervals{
		WaitingRoom: 1500 * time.Millisecond,
		Authority:   100 * time.Millisecond,
		Peer:        50 * time.Millisecond,
	}
}

// DefaultWagerIntervals returns the cadences for a wager round.
func DefaultWagerIntervals() Intervals {
	return Intervals{
		WaitingRoom: 1500 * time.Millisecond,
		Authority:   time.Second,
		Peer:        time.Second,
	}
}

// Live returns the interval for the given role once the session is live.
func (i Intervals) Live(authority bool) time.Duration {
	if authority {
		return i.Authority
	}
	return i.Peer
}

// Config describes one participant's view of one record.
type Config[T any] struct {
	Store     recordstore.Store
	Code      string
	Authority bool
	Intervals Intervals
	Clock     clockwork.Clock

	// Decode turns a fetched record into render state.
	Decode func(recordstore.Fields) (T, error)
	// Waiting reports whether the session is still gathering participants.
	Waiting func(T) bool
	// Terminal reports whether polling should stop.
	Terminal func(T) bool
	// OnRender receives every decoded fetch, in order, from the polling goroutine.
	OnRender func(T)
}

// Reconciler is the per-participant polling loop. Each successful fetch
// replaces the snapshot wholesale; nothing is merged with local writes.
type Reconciler[T any] struct {
	cfg  Config[T]
	task *task.Task

	mu       sync.Mutex
	stage    Stage
	snapshot T
	fetched  bool
}

// New creates a reconciler in the idle stage.
func New[T any](cfg Config[T]) *Reconciler[T] {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	r := &Reconciler[T]{
		cfg:   cfg,
		stage: StageIdle,
	}
	r.task = task.New("reconciler:"+cfg.Code, cfg.Clock, cfg.Intervals.WaitingRoom, r.iterate)
	return r
}

// Start begins polling from the waiting room. The first fetch happens one
// waiting-room interval later.
func (r *Reconciler[T]) Start(ctx context.Context) {
	r.mu.Lock()
	if r.stage == StageIdle {
		r.stage = StageWaitingRoom
	}
	r.mu.Unlock()
	r.task.Start(ctx)
}

// Stop halts polling and waits for an in-flight fetch. OnRender is never
// called after Stop returns.
func (r *Reconciler[T]) Stop() {
	r.task.Stop()
}

// Run polls until a terminal state is observed or ctx is done.
func (r *Reconciler[T]) Run(ctx context.Context) {
	r.Start(ctx)
	select {
	case <-r.task.Done():
	case <-ctx.Done():
	}
	r.Stop()
}

// Done is closed once polling has stopped.
func (r *Reconciler[T]) Done() <-chan struct{} {
	return r.task.Done()
}

// Stage returns the current stage.
func (r *Reconciler[T]) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Snapshot returns the last fetched state and whether any fetch has succeeded.
func (r *Reconciler[T]) Snapshot() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot, r.fetched
}

// Interval returns the current polling interval.
func (r *Reconciler[T]) Interval() time.Duration {
	return r.task.Interval()
}

func (r *Reconciler[T]) iterate(ctx context.Context) bool {
	rec, err := r.cfg.Store.Fetch(ctx, r.cfg.Code)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		ev := log.Debug()
		if errors.Is(err, recordstore.ErrNotFound) {
			ev = log.Warn()
		}
		ev.Err(err).Str("code", r.cfg.Code).Msg("fetch failed, polling again")
		return true
	}

	state, err := r.cfg.Decode(rec)
	if err != nil {
		log.Warn().Err(err).Str("code", r.cfg.Code).Msg("undecodable record, polling again")
		return true
	}

	next := StageLive
	switch {
	case r.cfg.Terminal != nil && r.cfg.Terminal(state):
		next = StageTerminal
	case r.cfg.Waiting != nil && r.cfg.Waiting(state):
		next = StageWaitingRoom
	}

	r.mu.Lock()
	prev := r.stage
	r.stage = next
	r.snapshot = state
	r.fetched = true
	r.mu.Unlock()

	if next != prev {
		log.Info().
			Str("code", r.cfg.Code).
			Bool("authority", r.cfg.Authority).
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("reconciler stage changed")
	}
	switch next {
	case StageWaitingRoom:
		r.task.SetInterval(r.cfg.Intervals.WaitingRoom)
	case StageLive:
		r.task.SetInterval(r.cfg.Intervals.Live(r.cfg.Authority))
	}

	if r.cfg.OnRender != nil {
		r.cfg.OnRender(state)
	}
	return next != StageTerminal
}
