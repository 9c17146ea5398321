package models

import (
	"encoding/json"
	"fmt"
)

// SessionKind defines which game a session record carries.
type SessionKind string

const (
	SessionKindPhysicsMatch SessionKind = "physics-match"
	SessionKindWagerRound   SessionKind = "wager-round"
)

// Valid reports whether k is a known session kind.
func (k SessionKind) Valid() bool {
	return k == SessionKindPhysicsMatch || k == SessionKindWagerRound
}

// Phase defines the lifecycle phase of a session.
type Phase string

const (
	// physics-match
	PhaseWaiting  Phase = "waiting"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"

	// wager-round (also starts in PhaseWaiting)
	PhaseBetting   Phase = "betting"
	PhaseResolving Phase = "resolving"
	PhaseSettled   Phase = "settled"
)

// Record field names. Each field has exactly one writer at any time.
const (
	FieldKind  = "kind"
	FieldPhase = "phase"

	FieldPlayer1 = "player1"
	FieldPlayer2 = "player2"
	FieldBallX   = "ball_x"
	FieldBallY   = "ball_y"
	FieldBallVX  = "ball_vx"
	FieldBallVY  = "ball_vy"
	FieldScore1  = "score1"
	FieldScore2  = "score2"
	FieldPaddle1 = "paddle1_y"
	FieldPaddle2 = "paddle2_y"

	FieldHost    = "host"
	FieldRound   = "round"
	FieldOutcome = "outcome"
	FieldLedger  = "ledger"

	seatPrefix = "seat:"
)

// SeatField returns the record field owned by the named wager participant.
func SeatField(name string) string {
	return seatPrefix + name
}

// Header holds the fields every session record carries.
type Header struct {
	Kind  SessionKind `json:"kind"`
	Phase Phase       `json:"phase"`
}

// DecodeHeader reads the kind and phase of a raw record.
func DecodeHeader(fields map[string]json.RawMessage) (Header, error) {
	var h Header
	if err := decodeInto(fields, &h); err != nil {
		return Header{}, err
	}
	if !h.Kind.Valid() {
		return Header{}, fmt.Errorf("unknown session kind %q", h.Kind)
	}
	return h, nil
}

// decodeInto re-assembles the record's fields into one JSON object and
// unmarshals it into v. Fields v does not declare are ignored.
func decodeInto(fields map[string]json.RawMessage, v any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to assemble record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
