package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/pong"
	"github.com/mcdev12/rendezvous/go/internal/reconciler"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

// PongView is the render state of a physics match.
type PongView struct {
	Code      string           `json:"code"`
	You       string           `json:"you"`
	Side      string           `json:"side"`
	Authority bool             `json:"authority"`
	Stage     reconciler.Stage `json:"stage"`
	Match     models.PongMatch `json:"match"`
	Winner    string           `json:"winner,omitempty"`
}

type pongParticipant struct {
	entry   session.Entry
	tuning  pong.Tuning
	publish func(session.Entry, any)

	writer    *recordstore.Writer
	poller    *reconciler.Reconciler[models.PongMatch]
	projector *pong.Projector
	authority *pong.Authority // host only
}

func newPongParticipant(entry session.Entry, initial models.PongMatch, deps Deps) *pongParticipant {
	p := &pongParticipant{
		entry:   entry,
		tuning:  deps.Tuning.Pong,
		publish: deps.Publish,
		writer:  recordstore.NewWriter(deps.Store, entry.Code),
	}
	p.projector = pong.NewProjector(entry.Side, p.tuning, p.writer)
	if entry.Authority {
		p.authority = pong.NewAuthority(entry.Code, initial, p.tuning, p.writer,
			pong.WithClock(deps.Clock),
			pong.WithTickHook(func(models.PongMatch, pong.Event) { p.render() }),
		)
	}
	p.poller = reconciler.New(reconciler.Config[models.PongMatch]{
		Store:     deps.Store,
		Code:      entry.Code,
		Authority: entry.Authority,
		Intervals: deps.Tuning.Polling.Physics,
		Clock:     deps.Clock,
		Decode: func(rec recordstore.Fields) (models.PongMatch, error) {
			return models.DecodePongMatch(rec)
		},
		Waiting: func(m models.PongMatch) bool {
			return m.Phase == models.PhaseWaiting
		},
		Terminal: func(m models.PongMatch) bool {
			_, won := m.Winner(p.tuning.WinScore)
			return m.Phase == models.PhaseFinished || won
		},
		OnRender: p.onFetch,
	})
	return p
}

func (p *pongParticipant) Entry() session.Entry {
	return p.entry
}

func (p *pongParticipant) Start(ctx context.Context) {
	p.writer.Start(ctx)
	p.poller.Start(ctx)
	if p.authority != nil {
		p.authority.Start(ctx)
	}
	log.Info().
		Str("code", p.entry.Code).
		Str("participant", p.entry.Name).
		Bool("authority", p.entry.Authority).
		Msg("pong participant started")
}

// Stop halts every loop, then the writer. Nothing is written afterwards.
func (p *pongParticipant) Stop() {
	if p.authority != nil {
		p.authority.Stop()
	}
	p.poller.Stop()
	p.writer.Close()
}

func (p *pongParticipant) Done() <-chan struct{} {
	return p.poller.Done()
}

func (p *pongParticipant) Flushed() bool {
	p.writer.Flush()
	return p.writer.Idle()
}

func (p *pongParticipant) Handle(ctx context.Context, cmd Command) error {
	if cmd.Type != CommandMove {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	surface := pong.Surface{Top: 0, Height: 100}
	if cmd.Surface != nil {
		surface = pong.Surface{Top: cmd.Surface.Top, Height: cmd.Surface.Height}
	}

	y := p.projector.OnPointerMove(cmd.Y, surface)
	if p.authority != nil {
		p.authority.SetPaddle(p.entry.Side, y)
	}
	p.render()
	return nil
}

func (p *pongParticipant) View() any {
	v := PongView{
		Code:      p.entry.Code,
		You:       p.entry.Name,
		Side:      p.entry.Side.String(),
		Authority: p.entry.Authority,
		Stage:     p.poller.Stage(),
	}

	if p.authority != nil {
		v.Match = p.authority.State()
	} else {
		v.Match, _ = p.poller.Snapshot()
		// echo the local paddle ahead of the next fetch
		if y, moved := p.projector.Position(); moved {
			if p.entry.Side == models.SideRight {
				v.Match.Paddle2Y = y
			} else {
				v.Match.Paddle1Y = y
			}
		}
	}
	v.Winner, _ = v.Match.Winner(p.tuning.WinScore)
	return v
}

func (p *pongParticipant) onFetch(m models.PongMatch) {
	if p.authority != nil {
		p.authority.Observe(m)
		// the tick hook renders the authority's view while the match runs
		if m.Phase == models.PhaseActive {
			return
		}
	}
	p.render()
}

func (p *pongParticipant) render() {
	p.publish(p.entry, p.View())
}
