package roulette

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/task"
)

// settlement is a drawn outcome with everything it pays, computed once.
type settlement struct {
	round   int
	outcome int
	seats   map[string]models.Seat
	ledger  map[string]int

	spunAt      time.Time
	resolvedSeq uint64 // submission carrying phase resolving and the outcome
	settledSeq  uint64 // submission carrying the credited seats
}

// Dealer is the host-only settlement authority. It owns phase, round,
// outcome and ledger, and every seat outside the betting window.
//
// A drawn outcome is never redrawn: Spin computes the whole settlement up
// front and the phase loop keeps re-offering those exact fields until the
// store acknowledges them.
type Dealer struct {
	store  recordstore.Store
	code   string
	writer *recordstore.Writer
	wheel  Wheel
	tuning Tuning
	clock  clockwork.Clock

	mu      sync.Mutex
	phase   models.Phase
	round   int
	pending *settlement

	task *task.Task
}

type DealerOption func(*Dealer)

// WithClock drives the spin delay and phase loop from clock.
func WithClock(clock clockwork.Clock) DealerOption {
	return func(d *Dealer) { d.clock = clock }
}

// NewDealer creates the settlement authority for the table at code, starting
// from the fetched record initial. Writes go through writer, which the
// caller owns; fetches go straight to store.
func NewDealer(store recordstore.Store, code string, initial models.RouletteTable, wheel Wheel, tuning Tuning, writer *recordstore.Writer, opts ...DealerOption) *Dealer {
	d := &Dealer{
		store:  store,
		code:   code,
		writer: writer,
		wheel:  wheel,
		tuning: tuning,
		clock:  clockwork.NewRealClock(),
		phase:  initial.Phase,
		round:  initial.Round,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.task = task.New("roulette-dealer:"+code, d.clock, tuning.CheckPeriod, d.iterate)
	return d
}

// Phase returns the dealer's current phase.
func (d *Dealer) Phase() models.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Round returns the current round number.
func (d *Dealer) Round() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.round
}

// NewRound opens betting from waiting or settled: every seat's bets are
// cleared, chips carry over unchanged and the round counter advances.
func (d *Dealer) NewRound(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		return ErrSpinInProgress
	}
	switch d.phase {
	case models.PhaseWaiting, models.PhaseSettled:
	case models.PhaseBetting:
		return ErrRoundOpen
	default:
		return fmt.Errorf("%w: cannot open a round while %s", ErrSpinInProgress, d.phase)
	}

	rt, err := d.fetch(ctx)
	if err != nil {
		return err
	}

	values := map[string]any{
		models.FieldPhase:   models.PhaseBetting,
		models.FieldRound:   d.round + 1,
		models.FieldOutcome: nil,
		models.FieldLedger:  nil,
	}
	for name, seat := range rt.Seats {
		values[models.SeatField(name)] = models.Seat{Chips: seat.Chips, Bets: []models.Bet{}}
	}
	fields, err := recordstore.FieldsOf(values)
	if err != nil {
		return fmt.Errorf("failed to encode round: %w", err)
	}

	d.writer.Submit(fields)
	d.phase = models.PhaseBetting
	d.round++

	log.Info().
		Str("code", d.code).
		Int("round", d.round).
		Int("seats", len(rt.Seats)).
		Msg("betting opened")
	return nil
}

// Spin draws the outcome for the current round. It requires every seated
// participant to have a pending bet. The outcome is persisted together with
// phase resolving; settlement follows once the spin duration has elapsed.
func (d *Dealer) Spin(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		return 0, ErrSpinInProgress
	}
	if d.phase != models.PhaseBetting {
		return 0, ErrBettingClosed
	}

	rt, err := d.fetch(ctx)
	if err != nil {
		return 0, err
	}
	if rt.Round != d.round || !rt.AllBet() {
		// a lagging record may still show the previous round's seats
		return 0, ErrBetsPending
	}

	outcome := d.wheel.Spin()
	seats, ledger := Settle(rt.Seats, outcome)
	s := &settlement{
		round:   d.round,
		outcome: outcome,
		seats:   seats,
		ledger:  ledger,
		spunAt:  d.clock.Now(),
	}

	fields, err := recordstore.FieldsOf(map[string]any{
		models.FieldPhase:   models.PhaseResolving,
		models.FieldOutcome: outcome,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode outcome: %w", err)
	}
	s.resolvedSeq = d.writer.Submit(fields)
	d.pending = s
	d.phase = models.PhaseResolving

	staked := 0
	for _, seat := range rt.Seats {
		staked += seat.Staked()
	}
	log.Info().
		Str("code", d.code).
		Int("round", d.round).
		Int("outcome", outcome).
		Int("staked", staked).
		Msg("wheel spun")
	return outcome, nil
}

// Advance moves a drawn outcome toward settled. It is called by the phase
// loop and is safe to call at any time.
func (d *Dealer) Advance() {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.pending
	if s == nil {
		return
	}

	switch d.phase {
	case models.PhaseResolving:
		if d.writer.Acked() < s.resolvedSeq {
			d.writer.Flush()
			return
		}
		if d.clock.Since(s.spunAt) < d.tuning.SpinDuration {
			return
		}
		values := map[string]any{
			models.FieldPhase:  models.PhaseSettled,
			models.FieldLedger: s.ledger,
		}
		for name, seat := range s.seats {
			values[models.SeatField(name)] = seat
		}
		fields, err := recordstore.FieldsOf(values)
		if err != nil {
			log.Error().Err(err).Str("code", d.code).Msg("failed to encode settlement")
			return
		}
		s.settledSeq = d.writer.Submit(fields)
		d.phase = models.PhaseSettled
		log.Info().
			Str("code", d.code).
			Int("round", s.round).
			Int("outcome", s.outcome).
			Interface("ledger", s.ledger).
			Msg("round settled")

	case models.PhaseSettled:
		if d.writer.Acked() < s.settledSeq {
			d.writer.Flush()
			return
		}
		d.pending = nil
	}
}

// Outcome returns the outcome being settled, if any.
func (d *Dealer) Outcome() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return 0, false
	}
	return d.pending.outcome, true
}

// Settling reports whether a drawn outcome is not yet fully persisted.
func (d *Dealer) Settling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Dealer) fetch(ctx context.Context) (models.RouletteTable, error) {
	rec, err := d.store.Fetch(ctx, d.code)
	if err != nil {
		return models.RouletteTable{}, fmt.Errorf("failed to fetch table: %w", err)
	}
	rt, err := models.DecodeRouletteTable(rec)
	if err != nil {
		return models.RouletteTable{}, err
	}
	return rt, nil
}

func (d *Dealer) iterate(ctx context.Context) bool {
	d.Advance()
	return true
}

// Start launches the phase loop.
func (d *Dealer) Start(ctx context.Context) {
	d.task.Start(ctx)
}

// Stop halts the phase loop. Nothing is written by the loop after Stop returns.
func (d *Dealer) Stop() {
	d.task.Stop()
}

// Run drives the phase loop until ctx is done.
func (d *Dealer) Run(ctx context.Context) {
	d.Start(ctx)
	select {
	case <-d.task.Done():
	case <-ctx.Done():
	}
	d.Stop()
}
