package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rawFields(t *testing.T, values map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", k, err)
		}
		out[k] = b
	}
	return out
}

func TestDecodeHeader(t *testing.T) {
	h, err := DecodeHeader(rawFields(t, map[string]any{"kind": "wager-round", "phase": "betting", "host": "ana"}))
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if h.Kind != SessionKindWagerRound || h.Phase != PhaseBetting {
		t.Errorf("DecodeHeader() = %+v", h)
	}

	if _, err := DecodeHeader(rawFields(t, map[string]any{"kind": "chess"})); err == nil {
		t.Error("DecodeHeader() error = nil for an unknown kind")
	}
	if _, err := DecodeHeader(map[string]json.RawMessage{"kind": json.RawMessage(`{`)}); err == nil {
		t.Error("DecodeHeader() error = nil for malformed JSON")
	}
}

func TestPongMatchRoundTrip(t *testing.T) {
	m := PongMatch{
		Phase:    PhaseWaiting,
		Player1:  "ana",
		BallX:    50,
		BallY:    50,
		BallVX:   1.4,
		BallVY:   1.4,
		Paddle1Y: 41,
		Paddle2Y: 41,
	}
	got, err := DecodePongMatch(rawFields(t, m.InitialFields()))
	if err != nil {
		t.Fatalf("DecodePongMatch() error = %v", err)
	}
	m.Kind = SessionKindPhysicsMatch
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("match mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthorityFieldsExcludePaddles(t *testing.T) {
	f := PongMatch{Paddle1Y: 10, Paddle2Y: 20}.AuthorityFields()
	for _, key := range []string{FieldPaddle1, FieldPaddle2, FieldPlayer1, FieldPlayer2, FieldKind} {
		if _, ok := f[key]; ok {
			t.Errorf("AuthorityFields() contains %s", key)
		}
	}
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name   string
		m      PongMatch
		want   string
		wantOK bool
	}{
		{"none", PongMatch{Player1: "ana", Player2: "bo", Score1: 6, Score2: 6}, "", false},
		{"left", PongMatch{Player1: "ana", Player2: "bo", Score1: 7, Score2: 3}, "ana", true},
		{"right", PongMatch{Player1: "ana", Player2: "bo", Score1: 2, Score2: 7}, "bo", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.m.Winner(7)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Winner(7) = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSideFields(t *testing.T) {
	if got := SideLeft.PaddleField(); got != FieldPaddle1 {
		t.Errorf("SideLeft.PaddleField() = %s, want %s", got, FieldPaddle1)
	}
	if got := SideRight.PaddleField(); got != FieldPaddle2 {
		t.Errorf("SideRight.PaddleField() = %s, want %s", got, FieldPaddle2)
	}
	m := PongMatch{Paddle1Y: 3, Paddle2Y: 9}
	if m.Paddle(SideLeft) != 3 || m.Paddle(SideRight) != 9 {
		t.Errorf("Paddle() = %v/%v, want 3/9", m.Paddle(SideLeft), m.Paddle(SideRight))
	}
}

func TestDecodeRouletteTableSeats(t *testing.T) {
	outcome := 17
	rt := RouletteTable{
		Phase:   PhaseSettled,
		Host:    "ana",
		Round:   2,
		Outcome: &outcome,
		Ledger:  map[string]int{"ana": 70},
		Seats: map[string]Seat{
			"ana": {Chips: 1040, Bets: []Bet{}},
			"bo":  {Chips: 0, Bets: []Bet{{Kind: BetColor, Selector: SelectorBlack, Stake: 5}}},
		},
	}
	got, err := DecodeRouletteTable(rawFields(t, rt.InitialFields()))
	if err != nil {
		t.Fatalf("DecodeRouletteTable() error = %v", err)
	}
	rt.Kind = SessionKindWagerRound
	if diff := cmp.Diff(rt, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	bad := rawFields(t, map[string]any{"kind": "wager-round"})
	bad[SeatField("cy")] = json.RawMessage(`"not a seat"`)
	if _, err := DecodeRouletteTable(bad); err == nil {
		t.Error("DecodeRouletteTable() error = nil for a malformed seat")
	}
}

func TestAllBet(t *testing.T) {
	tests := []struct {
		name  string
		seats map[string]Seat
		want  bool
	}{
		{"no seats", nil, false},
		{"one missing", map[string]Seat{"ana": {Bets: []Bet{{Stake: 1}}}, "bo": {}}, false},
		{"everyone", map[string]Seat{"ana": {Bets: []Bet{{Stake: 1}}}, "bo": {Bets: []Bet{{Stake: 2}}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (RouletteTable{Seats: tt.seats}).AllBet(); got != tt.want {
				t.Errorf("AllBet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeatStaked(t *testing.T) {
	s := Seat{Chips: 10, Bets: []Bet{{Stake: 5}, {Stake: 20}}}
	if got := s.Staked(); got != 25 {
		t.Errorf("Staked() = %d, want 25", got)
	}
}
