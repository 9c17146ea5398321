package pong

import (
	"math"
	"math/rand/v2"

	"github.com/mcdev12/rendezvous/go/internal/models"
)

// Event reports what happened during one tick.
type Event struct {
	Hit      models.Side // paddle that returned the ball, 0 if none
	Scored   models.Side // side whose score went up, 0 if none
	Finished bool        // the tick ended the match
}

// Step advances an active match by one tick. It never touches paddles.
// rng picks the vertical direction after a point.
func Step(m models.PongMatch, t Tuning, rng *rand.Rand) (models.PongMatch, Event) {
	var ev Event
	if m.Phase != models.PhaseActive {
		return m, ev
	}

	m.BallX += m.BallVX
	m.BallY += m.BallVY

	if m.BallY <= 0 || m.BallY >= 100-t.BallSize {
		m.BallVY = -m.BallVY
	}

	switch {
	case m.BallX <= t.LeftPlane() && overlaps(m.BallY, m.Paddle1Y, t):
		m.BallVX = math.Min(math.Abs(m.BallVX)*t.SpeedUp, t.MaxSpeed)
		m.BallVY += spin(m.BallY, m.Paddle1Y, t)
		m.BallX = t.LeftPlane()
		ev.Hit = models.SideLeft
	case m.BallX >= t.RightPlane() && overlaps(m.BallY, m.Paddle2Y, t):
		m.BallVX = math.Max(-math.Abs(m.BallVX)*t.SpeedUp, -t.MaxSpeed)
		m.BallVY += spin(m.BallY, m.Paddle2Y, t)
		m.BallX = t.RightPlane()
		ev.Hit = models.SideRight
	}

	switch {
	case m.BallX < 0:
		m.Score2++
		ev.Scored = models.SideRight
		serve(&m, 1, t, rng)
	case m.BallX > 100:
		m.Score1++
		ev.Scored = models.SideLeft
		serve(&m, -1, t, rng)
	}

	if m.Score1 >= t.WinScore || m.Score2 >= t.WinScore {
		m.Phase = models.PhaseFinished
		ev.Finished = true
	}
	return m, ev
}

// overlaps reports whether the ball's vertical extent meets the paddle's.
func overlaps(ballY, paddleY float64, t Tuning) bool {
	return ballY+t.BallSize >= paddleY && ballY <= paddleY+t.PaddleHeight
}

func spin(ballY, paddleY float64, t Tuning) float64 {
	return (ballY + t.BallSize/2 - (paddleY + t.PaddleHeight/2)) * t.Spin
}

// serve recenters the ball, heading toward direction on the x axis.
func serve(m *models.PongMatch, direction float64, t Tuning, rng *rand.Rand) {
	m.BallX, m.BallY = 50, 50
	m.BallVX = direction * t.InitialSpeed
	m.BallVY = t.InitialSpeed
	if rng.IntN(2) == 0 {
		m.BallVY = -t.InitialSpeed
	}
}

// NewMatch returns the initial state of a match created by host.
func NewMatch(host string, t Tuning) models.PongMatch {
	center := 50.0
	return models.PongMatch{
		Kind:     models.SessionKindPhysicsMatch,
		Phase:    models.PhaseWaiting,
		Player1:  host,
		BallX:    center,
		BallY:    center,
		BallVX:   t.InitialSpeed,
		BallVY:   t.InitialSpeed,
		Paddle1Y: center,
		Paddle2Y: center,
	}
}
