package pong

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/task"
)

// Authority is the host-only tick loop. It owns ball, scores and phase and
// keeps them in memory as ground truth: fetched records only contribute the
// opponent's paddle and the waiting-to-active flip, so a write that failed
// (or landed late) is never read back and simulated twice. The host's own
// paddle arrives through SetPaddle.
type Authority struct {
	code   string
	tuning Tuning
	clock  clockwork.Clock
	rng    *rand.Rand
	writer *recordstore.Writer

	onTick func(models.PongMatch, Event)

	mu          sync.Mutex
	state       models.PongMatch
	ticks       uint64
	finishedSeq uint64

	task *task.Task
}

type AuthorityOption func(*Authority)

// WithClock drives the tick loop from clock.
func WithClock(clock clockwork.Clock) AuthorityOption {
	return func(a *Authority) { a.clock = clock }
}

// WithRand sets the generator used to pick serve directions.
func WithRand(rng *rand.Rand) AuthorityOption {
	return func(a *Authority) { a.rng = rng }
}

// WithTickHook calls fn after every tick with the new state, outside the
// authority's lock.
func WithTickHook(fn func(models.PongMatch, Event)) AuthorityOption {
	return func(a *Authority) { a.onTick = fn }
}

// NewAuthority creates the tick loop for the match at code. Writes go through
// writer, which the caller owns.
func NewAuthority(code string, initial models.PongMatch, tuning Tuning, writer *recordstore.Writer, opts ...AuthorityOption) *Authority {
	a := &Authority{
		code:   code,
		tuning: tuning,
		clock:  clockwork.NewRealClock(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		writer: writer,
		state:  initial,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.task = task.New("pong-authority:"+code, a.clock, tuning.TickPeriod, a.iterate)
	return a
}

// Observe folds a fetched record into the local state.
func (a *Authority) Observe(m models.PongMatch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Paddle2Y = m.Paddle2Y
	if a.state.Player2 == "" && m.Player2 != "" {
		a.state.Player2 = m.Player2
	}
	if a.state.Phase == models.PhaseWaiting && m.Phase == models.PhaseActive {
		a.state.Phase = models.PhaseActive
		log.Info().Str("code", a.code).Str("participant", m.Player2).Msg("opponent joined, match active")
	}
}

// SetPaddle records the host's own paddle without waiting for a fetch.
func (a *Authority) SetPaddle(side models.Side, y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if side == models.SideRight {
		a.state.Paddle2Y = y
	} else {
		a.state.Paddle1Y = y
	}
}

// State returns the authority's current view of the match.
func (a *Authority) State() models.PongMatch {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Tick advances the simulation once and queues the owned fields for writing.
// The write is fire-and-forget; a failed write is retried with the next tick.
func (a *Authority) Tick() Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state.Phase {
	case models.PhaseWaiting:
		return Event{}
	case models.PhaseFinished:
		// the final state stays pending in the writer until it lands
		if a.writer.Acked() < a.finishedSeq {
			a.writer.Flush()
		}
		return Event{}
	}

	next, ev := Step(a.state, a.tuning, a.rng)
	a.state = next
	a.ticks++

	seq := a.submitLocked()
	if ev.Scored != 0 {
		log.Info().
			Str("code", a.code).
			Uint64("tick", a.ticks).
			Int("score1", a.state.Score1).
			Int("score2", a.state.Score2).
			Msg("point scored")
	}
	if ev.Finished {
		a.finishedSeq = seq
		winner, _ := a.state.Winner(a.tuning.WinScore)
		log.Info().Str("code", a.code).Str("participant", winner).Msg("match finished")
	}
	return ev
}

// Done reports whether the final state has been persisted.
func (a *Authority) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Phase == models.PhaseFinished && a.finishedSeq > 0 && a.writer.Acked() >= a.finishedSeq
}

func (a *Authority) submitLocked() uint64 {
	fields, err := recordstore.FieldsOf(a.state.AuthorityFields())
	if err != nil {
		log.Error().Err(err).Str("code", a.code).Msg("failed to encode match state")
		return 0
	}
	return a.writer.Submit(fields)
}

func (a *Authority) iterate(ctx context.Context) bool {
	ev := a.Tick()
	if a.onTick != nil {
		a.onTick(a.State(), ev)
	}
	return !a.Done()
}

// Start launches the tick loop.
func (a *Authority) Start(ctx context.Context) {
	a.task.Start(ctx)
}

// Stop halts the tick loop. No tick runs after Stop returns.
func (a *Authority) Stop() {
	a.task.Stop()
}

// Run ticks until the match is finished and persisted or ctx is done.
func (a *Authority) Run(ctx context.Context) {
	a.Start(ctx)
	select {
	case <-a.task.Done():
	case <-ctx.Done():
	}
	a.Stop()
}
