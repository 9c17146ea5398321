package pong

import "time"

// Tuning holds the physics constants. The play surface is a 0-100 square.
type Tuning struct {
	PaddleHeight float64 `yaml:"paddle_height"`
	PaddleWidth  float64 `yaml:"paddle_width"`
	PaddleInset  float64 `yaml:"paddle_inset"` // gap between the wall and the paddle
	BallSize     float64 `yaml:"ball_size"`

	InitialSpeed float64 `yaml:"initial_speed"` // per axis, units per tick
	MaxSpeed     float64 `yaml:"max_speed"`     // horizontal cap, units per tick
	SpeedUp      float64 `yaml:"speed_up"`      // horizontal multiplier on every paddle hit
	Spin         float64 `yaml:"spin"`          // vertical velocity per unit of off-center hit

	WinScore   int           `yaml:"win_score"`
	TickPeriod time.Duration `yaml:"tick_period"`
}

func DefaultTuning() Tuning {
	return Tuning{
		PaddleHeight: 18,
		PaddleWidth:  2.5,
		PaddleInset:  1.5,
		BallSize:     2.8,
		InitialSpeed: 1.4,
		MaxSpeed:     3.5,
		SpeedUp:      1.05,
		Spin:         0.1,
		WinScore:     7,
		TickPeriod:   30 * time.Millisecond,
	}
}

// LeftPlane is the x the ball's left edge is snapped to on a left paddle hit.
func (t Tuning) LeftPlane() float64 {
	return t.PaddleInset + t.PaddleWidth
}

// RightPlane is the x the ball's left edge is snapped to on a right paddle hit.
func (t Tuning) RightPlane() float64 {
	return 100 - t.PaddleInset - t.PaddleWidth - t.BallSize
}

// MaxPaddleY is the largest paddle position that keeps the paddle in bounds.
func (t Tuning) MaxPaddleY() float64 {
	return 100 - t.PaddleHeight
}
