package pong

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// Surface locates the play area in the raw pointer coordinate space.
type Surface struct {
	Top    float64
	Height float64
}

// Project maps a raw vertical pointer position onto a paddle position so the
// pointer tracks the paddle center and the whole paddle stays in bounds.
func Project(raw float64, s Surface, t Tuning) float64 {
	if s.Height <= 0 || math.IsNaN(raw) {
		return t.MaxPaddleY() / 2
	}
	pct := (raw - s.Top) / s.Height * 100
	return math.Max(0, math.Min(pct-t.PaddleHeight/2, t.MaxPaddleY()))
}

// Projector turns pointer movement into writes of one participant's paddle
// field. It never writes any other field.
type Projector struct {
	side   models.Side
	tuning Tuning
	writer *recordstore.Writer

	mu   sync.Mutex
	last float64
	sent bool
}

func NewProjector(side models.Side, tuning Tuning, writer *recordstore.Writer) *Projector {
	return &Projector{
		side:   side,
		tuning: tuning,
		writer: writer,
	}
}

// Side returns the paddle this projector drives.
func (p *Projector) Side() models.Side {
	return p.side
}

// OnPointerMove projects raw and queues the paddle write. Repeated positions
// are not rewritten. It returns the projected position.
func (p *Projector) OnPointerMove(raw float64, s Surface) float64 {
	y := Project(raw, s, p.tuning)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent && y == p.last {
		return y
	}

	fields, err := recordstore.FieldsOf(map[string]any{p.side.PaddleField(): y})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode paddle")
		return y
	}
	p.writer.Submit(fields)
	p.last, p.sent = y, true
	return y
}

// Position returns the last projected position, if the pointer has moved.
func (p *Projector) Position() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.sent
}
