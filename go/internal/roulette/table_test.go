package roulette

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/rendezvous/go/internal/models"
)

func bettingTable(round int, seats map[string]models.Seat) models.RouletteTable {
	return models.RouletteTable{
		Kind:  models.SessionKindWagerRound,
		Phase: models.PhaseBetting,
		Host:  "ana",
		Round: round,
		Seats: seats,
	}
}

func TestTablePlaceBetRequiresSeat(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"ana": fresh(1000)})
	table := NewTable(testCode, "bo", f.writer)

	table.Observe(bettingTable(1, map[string]models.Seat{"ana": fresh(1000)}))

	_, err := table.PlaceBet(models.Bet{Kind: models.BetColor, Selector: models.SelectorRed, Stake: 10})
	if !errors.Is(err, ErrNotSeated) {
		t.Errorf("PlaceBet() error = %v, want ErrNotSeated", err)
	}
}

func TestTablePlaceBetOnlyWhileBetting(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"bo": fresh(1000)})
	table := NewTable(testCode, "bo", f.writer)

	for _, phase := range []models.Phase{models.PhaseWaiting, models.PhaseResolving, models.PhaseSettled} {
		rt := bettingTable(1, map[string]models.Seat{"bo": fresh(1000)})
		rt.Phase = phase
		table.Observe(rt)

		_, err := table.PlaceBet(models.Bet{Kind: models.BetColor, Selector: models.SelectorRed, Stake: 10})
		if !errors.Is(err, ErrBettingClosed) {
			t.Errorf("PlaceBet() during %s error = %v, want ErrBettingClosed", phase, err)
		}
	}
	if got := f.store.Patches(); got != 0 {
		t.Errorf("Patches() = %d, want 0", got)
	}
}

func TestTablePlaceBetDeductsAndWritesOwnSeat(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"ana": fresh(1000), "bo": fresh(1000)})
	table := NewTable(testCode, "bo", f.writer)
	table.Observe(bettingTable(1, map[string]models.Seat{"ana": fresh(1000), "bo": fresh(1000)}))

	first := models.Bet{Kind: models.BetSingleNumber, Selector: "17", Stake: 50}
	second := models.Bet{Kind: models.BetColor, Selector: models.SelectorRed, Stake: 20}
	if _, err := table.PlaceBet(first); err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}
	seat, err := table.PlaceBet(second)
	if err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}

	want := models.Seat{Chips: 930, Bets: []models.Bet{first, second}}
	if diff := cmp.Diff(want, seat); diff != "" {
		t.Errorf("seat mismatch (-want +got):\n%s", diff)
	}

	waitAcked(t, f.writer, 2)
	rt := f.record(t)
	if diff := cmp.Diff(want, rt.Seats["bo"]); diff != "" {
		t.Errorf("stored seat mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fresh(1000), rt.Seats["ana"]); diff != "" {
		t.Errorf("other seat was touched (-want +got):\n%s", diff)
	}
}

func TestTablePlaceBetRejectsBadBets(t *testing.T) {
	tests := []struct {
		name string
		bet  models.Bet
		want error
	}{
		{"stake above chips", models.Bet{Kind: models.BetColor, Selector: models.SelectorBlack, Stake: 101}, ErrInsufficientFunds},
		{"zero stake", models.Bet{Kind: models.BetColor, Selector: models.SelectorBlack, Stake: 0}, ErrInvalidStake},
		{"unknown selector", models.Bet{Kind: models.BetDozen, Selector: "37-48", Stake: 10}, ErrInvalidBet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]models.Seat{"bo": fresh(100)})
			table := NewTable(testCode, "bo", f.writer)
			table.Observe(bettingTable(1, map[string]models.Seat{"bo": fresh(100)}))

			_, err := table.PlaceBet(tt.bet)
			if !errors.Is(err, tt.want) {
				t.Fatalf("PlaceBet() error = %v, want %v", err, tt.want)
			}
			seat, _ := table.Seat()
			if seat.Chips != 100 || len(seat.Bets) != 0 {
				t.Errorf("seat = %+v, want untouched", seat)
			}
		})
	}
}

func TestTableAllInLeavesZeroChips(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"bo": fresh(100)})
	table := NewTable(testCode, "bo", f.writer)
	table.Observe(bettingTable(1, map[string]models.Seat{"bo": fresh(100)}))

	seat, err := table.PlaceBet(models.Bet{Kind: models.BetParity, Selector: models.SelectorOdd, Stake: 100})
	if err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}
	if seat.Chips != 0 {
		t.Errorf("Chips = %d, want 0", seat.Chips)
	}
	_, err = table.PlaceBet(models.Bet{Kind: models.BetParity, Selector: models.SelectorOdd, Stake: 1})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("PlaceBet() with no chips error = %v, want ErrInsufficientFunds", err)
	}
}

func TestTableKeepsOwnSeatWhileBetting(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"bo": fresh(1000)})
	table := NewTable(testCode, "bo", f.writer)
	table.Observe(bettingTable(1, map[string]models.Seat{"bo": fresh(1000)}))

	bet := models.Bet{Kind: models.BetColor, Selector: models.SelectorRed, Stake: 50}
	if _, err := table.PlaceBet(bet); err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}

	// a fetch that predates the bet write must not roll the seat back
	table.Observe(bettingTable(1, map[string]models.Seat{"bo": fresh(1000)}))

	seat, _ := table.Seat()
	want := models.Seat{Chips: 950, Bets: []models.Bet{bet}}
	if diff := cmp.Diff(want, seat); diff != "" {
		t.Errorf("seat mismatch (-want +got):\n%s", diff)
	}
}

func TestTableAdoptsDealerSeatOutsideBetting(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"bo": fresh(1000)})
	table := NewTable(testCode, "bo", f.writer)
	table.Observe(bettingTable(1, map[string]models.Seat{"bo": fresh(1000)}))
	if _, err := table.PlaceBet(models.Bet{Kind: models.BetColor, Selector: models.SelectorRed, Stake: 50}); err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}

	settled := bettingTable(1, map[string]models.Seat{"bo": fresh(1050)})
	settled.Phase = models.PhaseSettled
	table.Observe(settled)

	seat, _ := table.Seat()
	if diff := cmp.Diff(fresh(1050), seat); diff != "" {
		t.Errorf("seat mismatch (-want +got):\n%s", diff)
	}
	if got := table.Phase(); got != models.PhaseSettled {
		t.Errorf("Phase() = %s, want settled", got)
	}
}

func TestTableAdoptsSeatOnNewRound(t *testing.T) {
	f := newFixture(t, map[string]models.Seat{"bo": fresh(1000)})
	table := NewTable(testCode, "bo", f.writer)
	table.Observe(bettingTable(1, map[string]models.Seat{"bo": fresh(1000)}))
	if _, err := table.PlaceBet(models.Bet{Kind: models.BetColor, Selector: models.SelectorRed, Stake: 50}); err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}

	// the stake was lost and the dealer reopened betting with cleared bets
	table.Observe(bettingTable(2, map[string]models.Seat{"bo": fresh(950)}))

	seat, _ := table.Seat()
	if diff := cmp.Diff(fresh(950), seat); diff != "" {
		t.Errorf("seat mismatch (-want +got):\n%s", diff)
	}
}
