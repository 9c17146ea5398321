package models

import "encoding/json"

// Side identifies a paddle. Player1 plays the left side and is the authority.
type Side int

const (
	SideLeft  Side = 1
	SideRight Side = 2
)

// PaddleField returns the record field owned by the paddle on side s.
func (s Side) PaddleField() string {
	if s == SideRight {
		return FieldPaddle2
	}
	return FieldPaddle1
}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// PongMatch is the decoded physics-match record.
type PongMatch struct {
	Kind    SessionKind `json:"kind"`
	Phase   Phase       `json:"phase"`
	Player1 string      `json:"player1"`
	Player2 string      `json:"player2"`

	BallX  float64 `json:"ball_x"`
	BallY  float64 `json:"ball_y"`
	BallVX float64 `json:"ball_vx"`
	BallVY float64 `json:"ball_vy"`

	Score1 int `json:"score1"`
	Score2 int `json:"score2"`

	Paddle1Y float64 `json:"paddle1_y"`
	Paddle2Y float64 `json:"paddle2_y"`
}

// DecodePongMatch decodes a raw physics-match record.
func DecodePongMatch(fields map[string]json.RawMessage) (PongMatch, error) {
	var m PongMatch
	if err := decodeInto(fields, &m); err != nil {
		return PongMatch{}, err
	}
	return m, nil
}

// Authority returns the participant allowed to write ball, score and phase fields.
func (m PongMatch) Authority() string {
	return m.Player1
}

// Paddle returns the paddle position on side s.
func (m PongMatch) Paddle(s Side) float64 {
	if s == SideRight {
		return m.Paddle2Y
	}
	return m.Paddle1Y
}

// Winner returns the display name of the side that reached winScore, if any.
func (m PongMatch) Winner(winScore int) (string, bool) {
	switch {
	case m.Score1 >= winScore:
		return m.Player1, true
	case m.Score2 >= winScore:
		return m.Player2, true
	default:
		return "", false
	}
}

// AuthorityFields returns the subset of the record owned by the physics authority.
// Paddle fields are never part of it.
func (m PongMatch) AuthorityFields() map[string]any {
	return map[string]any{
		FieldBallX:  m.BallX,
		FieldBallY:  m.BallY,
		FieldBallVX: m.BallVX,
		FieldBallVY: m.BallVY,
		FieldScore1: m.Score1,
		FieldScore2: m.Score2,
		FieldPhase:  m.Phase,
	}
}

// InitialFields returns the full record written when a match is created.
func (m PongMatch) InitialFields() map[string]any {
	f := m.AuthorityFields()
	f[FieldKind] = SessionKindPhysicsMatch
	f[FieldPlayer1] = m.Player1
	f[FieldPlayer2] = nil
	f[FieldPaddle1] = m.Paddle1Y
	f[FieldPaddle2] = m.Paddle2Y
	return f
}
