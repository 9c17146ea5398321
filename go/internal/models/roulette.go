package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BetKind defines the kind of wager placed on the wheel.
type BetKind string

const (
	BetSingleNumber BetKind = "single-number"
	BetColor        BetKind = "color"
	BetParity       BetKind = "parity"
	BetDozen        BetKind = "dozen"
)

// Bet selectors for the non-numeric kinds.
const (
	SelectorRed    = "red"
	SelectorBlack  = "black"
	SelectorEven   = "even"
	SelectorOdd    = "odd"
	SelectorDozen1 = "1-12"
	SelectorDozen2 = "13-24"
	SelectorDozen3 = "25-36"
)

// Bet is a single pending wager.
type Bet struct {
	Kind     BetKind `json:"kind"`
	Selector string  `json:"selector"`
	Stake    int     `json:"stake"`
}

// Seat is the per-participant state of a wager round.
type Seat struct {
	Chips int   `json:"chips"`
	Bets  []Bet `json:"bets"`
}

// Staked returns the sum of all pending stakes.
func (s Seat) Staked() int {
	total := 0
	for _, b := range s.Bets {
		total += b.Stake
	}
	return total
}

// RouletteTable is the decoded wager-round record.
type RouletteTable struct {
	Kind    SessionKind     `json:"kind"`
	Phase   Phase           `json:"phase"`
	Host    string          `json:"host"`
	Round   int             `json:"round"`
	Outcome *int            `json:"outcome"`
	Ledger  map[string]int  `json:"ledger"`
	Seats   map[string]Seat `json:"-"`
}

// DecodeRouletteTable decodes a raw wager-round record, collecting every seat field.
func DecodeRouletteTable(fields map[string]json.RawMessage) (RouletteTable, error) {
	var t RouletteTable
	if err := decodeInto(fields, &t); err != nil {
		return RouletteTable{}, err
	}
	t.Seats = make(map[string]Seat)
	for key, raw := range fields {
		name, ok := strings.CutPrefix(key, seatPrefix)
		if !ok {
			continue
		}
		var seat Seat
		if err := json.Unmarshal(raw, &seat); err != nil {
			return RouletteTable{}, fmt.Errorf("failed to decode seat %q: %w", name, err)
		}
		t.Seats[name] = seat
	}
	return t, nil
}

// Authority returns the participant allowed to write phase, outcome and ledger.
func (t RouletteTable) Authority() string {
	return t.Host
}

// AllBet reports whether every seated participant has at least one pending bet.
func (t RouletteTable) AllBet() bool {
	if len(t.Seats) == 0 {
		return false
	}
	for _, s := range t.Seats {
		if len(s.Bets) == 0 {
			return false
		}
	}
	return true
}

// InitialFields returns the full record written when a table is created.
func (t RouletteTable) InitialFields() map[string]any {
	f := map[string]any{
		FieldKind:    SessionKindWagerRound,
		FieldPhase:   t.Phase,
		FieldHost:    t.Host,
		FieldRound:   t.Round,
		FieldOutcome: t.Outcome,
		FieldLedger:  t.Ledger,
	}
	for name, seat := range t.Seats {
		f[SeatField(name)] = seat
	}
	return f
}
