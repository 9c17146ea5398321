package roulette

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// Table is one participant's view of a wager round. The participant owns its
// seat field while betting is open; during that window the local seat is the
// truth because its own writes may not be visible in fetched records yet.
// Outside betting, and whenever the round number changes, the seat is taken
// from the record since the dealer wrote it.
type Table struct {
	code   string
	name   string
	writer *recordstore.Writer

	mu     sync.Mutex
	seat   models.Seat
	seated bool
	phase  models.Phase
	round  int
}

// NewTable creates the betting side for participant name. Seat writes go
// through writer, which the caller owns.
func NewTable(code, name string, writer *recordstore.Writer) *Table {
	return &Table{
		code:   code,
		name:   name,
		writer: writer,
		phase:  models.PhaseWaiting,
	}
}

// Observe folds a fetched record into the local view.
func (t *Table) Observe(rt models.RouletteTable) {
	t.mu.Lock()
	defer t.mu.Unlock()

	remote, ok := rt.Seats[t.name]
	newRound := rt.Round != t.round
	ownsSeat := t.seated && rt.Phase == models.PhaseBetting && t.phase == models.PhaseBetting && !newRound

	t.phase = rt.Phase
	t.round = rt.Round
	if ok && !ownsSeat {
		t.seat = cloneSeat(remote)
		t.seated = true
	}
}

// Seat returns the participant's current chips and pending bets.
func (t *Table) Seat() (models.Seat, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneSeat(t.seat), t.seated
}

// Phase returns the last observed round phase.
func (t *Table) Phase() models.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// PlaceBet appends b to the participant's bets and deducts the stake at once.
// The updated seat is queued for writing and returned.
func (t *Table) PlaceBet(b models.Bet) (models.Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.seated {
		return models.Seat{}, ErrNotSeated
	}
	if t.phase != models.PhaseBetting {
		return models.Seat{}, ErrBettingClosed
	}
	if err := ValidateBet(b); err != nil {
		return models.Seat{}, err
	}
	if b.Stake > t.seat.Chips {
		return models.Seat{}, fmt.Errorf("%w: stake %d, chips %d", ErrInsufficientFunds, b.Stake, t.seat.Chips)
	}

	t.seat.Chips -= b.Stake
	t.seat.Bets = append(t.seat.Bets, b)

	fields, err := recordstore.FieldsOf(map[string]any{models.SeatField(t.name): t.seat})
	if err != nil {
		return models.Seat{}, fmt.Errorf("failed to encode seat: %w", err)
	}
	t.writer.Submit(fields)

	log.Debug().
		Str("code", t.code).
		Str("participant", t.name).
		Str("bet_kind", string(b.Kind)).
		Str("selector", b.Selector).
		Int("stake", b.Stake).
		Int("chips", t.seat.Chips).
		Msg("bet placed")
	return cloneSeat(t.seat), nil
}

func cloneSeat(s models.Seat) models.Seat {
	s.Bets = slices.Clone(s.Bets)
	if s.Bets == nil {
		s.Bets = []models.Bet{}
	}
	return s
}
