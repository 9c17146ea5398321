package roulette

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/memory"
)

const testCode = "ROUL"

// fixedWheel always lands on the same pocket and counts its draws.
type fixedWheel struct {
	outcome int
	spins   int
}

func (w *fixedWheel) Spin() int {
	w.spins++
	return w.outcome
}

type fixture struct {
	store  *memory.Store
	writer *recordstore.Writer
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, seats map[string]models.Seat) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	values := map[string]any{
		models.FieldKind:    models.SessionKindWagerRound,
		models.FieldPhase:   models.PhaseWaiting,
		models.FieldHost:    "ana",
		models.FieldRound:   0,
		models.FieldOutcome: nil,
		models.FieldLedger:  nil,
	}
	for name, seat := range seats {
		values[models.SeatField(name)] = seat
	}
	if err := store.Create(ctx, testCode, models.SessionKindWagerRound, mustFields(t, values)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	w := recordstore.NewWriter(store, testCode)
	w.Start(ctx)
	t.Cleanup(w.Close)
	return &fixture{store: store, writer: w, clock: clockwork.NewFakeClock()}
}

func (f *fixture) dealer(t *testing.T, wheel Wheel) *Dealer {
	t.Helper()
	return NewDealer(f.store, testCode, f.record(t), wheel, DefaultTuning(), f.writer, WithClock(f.clock))
}

func (f *fixture) record(t *testing.T) models.RouletteTable {
	t.Helper()
	rec, err := f.store.Fetch(context.Background(), testCode)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	rt, err := models.DecodeRouletteTable(rec)
	if err != nil {
		t.Fatalf("DecodeRouletteTable() error = %v", err)
	}
	return rt
}

// bet writes a participant's seat straight to the store, as their own writer would.
func (f *fixture) bet(t *testing.T, name string, seat models.Seat) {
	t.Helper()
	fields := mustFields(t, map[string]any{models.SeatField(name): seat})
	if err := f.store.Patch(context.Background(), testCode, fields); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
}

func mustFields(t *testing.T, values map[string]any) recordstore.Fields {
	t.Helper()
	fields, err := recordstore.FieldsOf(values)
	if err != nil {
		t.Fatalf("FieldsOf() error = %v", err)
	}
	return fields
}

func waitAcked(t *testing.T, w *recordstore.Writer, seq uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for w.Acked() < seq {
		if time.Now().After(deadline) {
			t.Fatalf("Acked() = %d, want >= %d", w.Acked(), seq)
		}
		time.Sleep(time.Millisecond)
	}
}

func fresh(chips int) models.Seat {
	return models.Seat{Chips: chips, Bets: []models.Bet{}}
}
