package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/reconciler"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/roulette"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

// RouletteView is the render state of a wager round.
type RouletteView struct {
	Code      string                 `json:"code"`
	You       string                 `json:"you"`
	Authority bool                   `json:"authority"`
	Stage     reconciler.Stage       `json:"stage"`
	Table     models.RouletteTable   `json:"table"`
	Seats     map[string]models.Seat `json:"seats"`
	Seat      models.Seat            `json:"seat"`
	Seated    bool                   `json:"seated"`
}

type rouletteParticipant struct {
	entry   session.Entry
	publish func(session.Entry, any)

	writer *recordstore.Writer
	poller *reconciler.Reconciler[models.RouletteTable]
	table  *roulette.Table
	dealer *roulette.Dealer // host only
}

func newRouletteParticipant(entry session.Entry, initial models.RouletteTable, deps Deps) (*rouletteParticipant, error) {
	p := &rouletteParticipant{
		entry:   entry,
		publish: deps.Publish,
		writer:  recordstore.NewWriter(deps.Store, entry.Code),
	}
	p.table = roulette.NewTable(entry.Code, entry.Name, p.writer)
	p.table.Observe(initial)

	if entry.Authority {
		wheel, err := roulette.NewWheel()
		if err != nil {
			return nil, err
		}
		p.dealer = roulette.NewDealer(deps.Store, entry.Code, initial, wheel, deps.Tuning.Roulette, p.writer,
			roulette.WithClock(deps.Clock))
	}

	p.poller = reconciler.New(reconciler.Config[models.RouletteTable]{
		Store:     deps.Store,
		Code:      entry.Code,
		Authority: entry.Authority,
		Intervals: deps.Tuning.Polling.Wager,
		Clock:     deps.Clock,
		Decode: func(rec recordstore.Fields) (models.RouletteTable, error) {
			return models.DecodeRouletteTable(rec)
		},
		Waiting: func(rt models.RouletteTable) bool {
			return rt.Phase == models.PhaseWaiting
		},
		Terminal: func(rt models.RouletteTable) bool {
			if entry.Authority {
				// the host keeps dealing while anyone can still play
				return tableBusted(rt)
			}
			return busted(rt, entry.Name)
		},
		OnRender: p.onFetch,
	})
	return p, nil
}

// busted reports whether name has no chips left once a round has settled.
// Settled seats still list the round's bets, so only chips count.
func busted(rt models.RouletteTable, name string) bool {
	seat, ok := rt.Seats[name]
	return ok && rt.Phase == models.PhaseSettled && seat.Chips == 0
}

// tableBusted reports whether every seated participant is busted.
func tableBusted(rt models.RouletteTable) bool {
	if len(rt.Seats) == 0 {
		return false
	}
	for name := range rt.Seats {
		if !busted(rt, name) {
			return false
		}
	}
	return true
}

func (p *rouletteParticipant) Entry() session.Entry {
	return p.entry
}

func (p *rouletteParticipant) Start(ctx context.Context) {
	p.writer.Start(ctx)
	p.poller.Start(ctx)
	if p.dealer != nil {
		p.dealer.Start(ctx)
	}
	log.Info().
		Str("code", p.entry.Code).
		Str("participant", p.entry.Name).
		Bool("authority", p.entry.Authority).
		Msg("roulette participant started")
}

// Stop halts every loop, then the writer. Nothing is written afterwards.
func (p *rouletteParticipant) Stop() {
	if p.dealer != nil {
		p.dealer.Stop()
	}
	p.poller.Stop()
	p.writer.Close()
}

func (p *rouletteParticipant) Done() <-chan struct{} {
	return p.poller.Done()
}

func (p *rouletteParticipant) Flushed() bool {
	p.writer.Flush()
	return p.writer.Idle()
}

func (p *rouletteParticipant) Handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandBet:
		if cmd.Bet == nil {
			return fmt.Errorf("%w: bet is required", roulette.ErrInvalidBet)
		}
		if _, err := p.table.PlaceBet(*cmd.Bet); err != nil {
			return err
		}
	case CommandSpin:
		if p.dealer == nil {
			return ErrNotAuthority
		}
		if _, err := p.dealer.Spin(ctx); err != nil {
			return err
		}
	case CommandNewRound:
		if p.dealer == nil {
			return ErrNotAuthority
		}
		if err := p.dealer.NewRound(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	p.render()
	return nil
}

func (p *rouletteParticipant) View() any {
	rt, _ := p.poller.Snapshot()
	v := RouletteView{
		Code:      p.entry.Code,
		You:       p.entry.Name,
		Authority: p.entry.Authority,
		Stage:     p.poller.Stage(),
		Table:     rt,
		Seats:     rt.Seats,
	}
	if p.dealer != nil {
		// the host knows its own phase before the record shows it
		v.Table.Phase = p.dealer.Phase()
		v.Table.Round = p.dealer.Round()
	}
	v.Seat, v.Seated = p.table.Seat()
	return v
}

func (p *rouletteParticipant) onFetch(rt models.RouletteTable) {
	p.table.Observe(rt)
	p.render()
}

func (p *rouletteParticipant) render() {
	p.publish(p.entry, p.View())
}
