// Package session issues session codes, creates the initial record and
// admits participants into existing sessions.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/pong"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/roulette"
)

// maxCreateAttempts bounds retries on code collisions.
const maxCreateAttempts = 10

// Entry is what a participant needs to take part in a session.
type Entry struct {
	Code      string             `json:"code"`
	Kind      models.SessionKind `json:"kind"`
	Name      string             `json:"name"`
	Authority bool               `json:"authority"`
	Side      models.Side        `json:"side,omitempty"` // physics-match only
}

// Registry creates and joins sessions through a record store.
type Registry struct {
	store    recordstore.Store
	pong     pong.Tuning
	roulette roulette.Tuning
	codes    func() (string, error)
}

type Option func(*Registry)

// WithPongTuning sets the tuning used for new physics matches.
func WithPongTuning(t pong.Tuning) Option {
	return func(r *Registry) { r.pong = t }
}

// WithRouletteTuning sets the tuning used for new wager rounds.
func WithRouletteTuning(t roulette.Tuning) Option {
	return func(r *Registry) { r.roulette = t }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.codes = gen }
}

func NewRegistry(store recordstore.Store, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		pong:     pong.DefaultTuning(),
		roulette: roulette.DefaultTuning(),
		codes:    GenerateCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a session of kind with name as its authority.
func (r *Registry) Create(ctx context.Context, kind models.SessionKind, name string) (Entry, error) {
	name, err := ValidateName(name)
	if err != nil {
		return Entry{}, err
	}

	var values map[string]any
	entry := Entry{Kind: kind, Name: name, Authority: true}
	switch kind {
	case models.SessionKindPhysicsMatch:
		values = pong.NewMatch(name, r.pong).InitialFields()
		entry.Side = models.SideLeft
	case models.SessionKindWagerRound:
		values = models.RouletteTable{
			Phase: models.PhaseWaiting,
			Host:  name,
			Seats: map[string]models.Seat{name: r.newSeat()},
		}.InitialFields()
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	fields, err := recordstore.FieldsOf(values)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode session: %w", err)
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		code, err := r.codes()
		if err != nil {
			return Entry{}, fmt.Errorf("failed to generate code: %w", err)
		}

		err = r.store.Create(ctx, code, kind, fields)
		if errors.Is(err, recordstore.ErrAlreadyExists) {
			log.Debug().Str("code", code).Int("attempt", attempt).Msg("session code taken, retrying")
			continue
		}
		if err != nil {
			return Entry{}, fmt.Errorf("failed to create session: %w", err)
		}

		entry.Code = code
		log.Info().
			Str("code", code).
			Str("kind", string(kind)).
			Str("participant", name).
			Msg("session created")
		return entry, nil
	}
	return Entry{}, ErrCodesExhausted
}

// Join admits name into the session at code. A rejected join leaves the
// record untouched.
func (r *Registry) Join(ctx context.Context, code, name string) (Entry, error) {
	code = NormalizeCode(code)
	name, err := ValidateName(name)
	if err != nil {
		return Entry{}, err
	}

	rec, err := r.store.Fetch(ctx, code)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to fetch session %s: %w", code, err)
	}
	header, err := models.DecodeHeader(rec)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	switch header.Kind {
	case models.SessionKindPhysicsMatch:
		entry, err = r.joinMatch(ctx, code, name, rec)
	case models.SessionKindWagerRound:
		entry, err = r.joinTable(ctx, code, name, rec)
	}
	if err != nil {
		return Entry{}, err
	}

	log.Info().
		Str("code", code).
		Str("kind", string(header.Kind)).
		Str("participant", name).
		Msg("participant joined")
	return entry, nil
}

func (r *Registry) joinMatch(ctx context.Context, code, name string, rec recordstore.Fields) (Entry, error) {
	m, err := models.DecodePongMatch(rec)
	if err != nil {
		return Entry{}, err
	}
	if m.Player2 != "" {
		return Entry{}, ErrCapacityExceeded
	}
	if m.Player1 == name {
		return Entry{}, ErrDuplicateParticipant
	}

	fields, err := recordstore.FieldsOf(map[string]any{
		models.FieldPlayer2: name,
		models.FieldPhase:   models.PhaseActive,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode join: %w", err)
	}
	if err := r.store.Patch(ctx, code, fields); err != nil {
		return Entry{}, fmt.Errorf("failed to join session %s: %w", code, err)
	}
	return Entry{
		Code: code,
		Kind: models.SessionKindPhysicsMatch,
		Name: name,
		Side: models.SideRight,
	}, nil
}

func (r *Registry) joinTable(ctx context.Context, code, name string, rec recordstore.Fields) (Entry, error) {
	rt, err := models.DecodeRouletteTable(rec)
	if err != nil {
		return Entry{}, err
	}
	if _, taken := rt.Seats[name]; taken {
		return Entry{}, ErrDuplicateParticipant
	}

	fields, err := recordstore.FieldsOf(map[string]any{models.SeatField(name): r.newSeat()})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode seat: %w", err)
	}
	if err := r.store.Patch(ctx, code, fields); err != nil {
		return Entry{}, fmt.Errorf("failed to join session %s: %w", code, err)
	}
	return Entry{
		Code:      code,
		Kind:      models.SessionKindWagerRound,
		Name:      name,
		Authority: rt.Authority() == name,
	}, nil
}

func (r *Registry) newSeat() models.Seat {
	return models.Seat{Chips: r.roulette.StartingChips, Bets: []models.Bet{}}
}
