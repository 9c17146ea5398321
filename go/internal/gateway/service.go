package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/config"
	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

// flushRetryPeriod paces retries of a finished participant's last writes.
const flushRetryPeriod = 250 * time.Millisecond

// ErrUnknownParticipant is returned for a participant this process does not host.
var ErrUnknownParticipant = errors.New("participant is not hosted by this gateway")

// Config holds configuration for the participant gateway.
type Config struct {
	Connection ConnectionConfig
	Tuning     config.Tuning
	Clock      clockwork.Clock
}

func DefaultConfig() Config {
	return Config{
		Connection: DefaultConnectionConfig(),
		Tuning:     config.DefaultTuning(),
		Clock:      clockwork.NewRealClock(),
	}
}

// Service runs the local participants of this process and feeds their
// render state to WebSocket clients.
type Service struct {
	store    recordstore.Store
	registry *session.Registry
	manager  *ConnectionManager
	cfg      Config

	mu           sync.Mutex
	ctx          context.Context
	participants map[string]Participant
}

func NewService(store recordstore.Store, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	s := &Service{
		store: store,
		registry: session.NewRegistry(store,
			session.WithPongTuning(cfg.Tuning.Pong),
			session.WithRouletteTuning(cfg.Tuning.Roulette),
		),
		cfg:          cfg,
		ctx:          context.Background(),
		participants: make(map[string]Participant),
	}
	s.manager = NewConnectionManager(cfg.Connection, s.Handle)
	return s
}

// Key identifies a participant within the process.
func Key(code, name string) string {
	return code + "/" + name
}

// Start serves until ctx is done, then stops every participant.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	log.Info().Msg("starting participant gateway")
	go s.manager.Start(ctx)

	<-ctx.Done()
	log.Info().Msg("participant gateway shutting down")
	s.Stop()
	return nil
}

// Stop halts every participant. No participant writes after Stop returns.
func (s *Service) Stop() {
	s.mu.Lock()
	participants := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	s.mu.Unlock()

	for _, p := range participants {
		p.Stop()
	}
}

// Create starts a new session hosted by name.
func (s *Service) Create(ctx context.Context, kind models.SessionKind, name string) (session.Entry, error) {
	entry, err := s.registry.Create(ctx, kind, name)
	if err != nil {
		return session.Entry{}, err
	}
	if err := s.attach(ctx, entry); err != nil {
		return session.Entry{}, err
	}
	return entry, nil
}

// Join adds name to the session at code.
func (s *Service) Join(ctx context.Context, code, name string) (session.Entry, error) {
	entry, err := s.registry.Join(ctx, code, name)
	if err != nil {
		return session.Entry{}, err
	}
	if err := s.attach(ctx, entry); err != nil {
		return session.Entry{}, err
	}
	return entry, nil
}

// Participant returns the local participant at key.
func (s *Service) Participant(key string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[key]
	return p, ok
}

// Handle applies cmd to the participant at key.
func (s *Service) Handle(ctx context.Context, key string, cmd Command) error {
	p, ok := s.Participant(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, key)
	}
	return p.Handle(ctx, cmd)
}

func (s *Service) attach(ctx context.Context, entry session.Entry) error {
	p, err := NewParticipant(ctx, entry, Deps{
		Store:   s.store,
		Tuning:  s.cfg.Tuning,
		Clock:   s.cfg.Clock,
		Publish: s.publish,
	})
	if err != nil {
		return err
	}

	key := Key(entry.Code, entry.Name)
	s.mu.Lock()
	s.participants[key] = p
	runCtx := s.ctx
	s.mu.Unlock()

	p.Start(runCtx)
	go s.retire(runCtx, key, p)
	return nil
}

// retire stops and forgets p once its session has ended and its last
// writes have landed.
func (s *Service) retire(ctx context.Context, key string, p Participant) {
	select {
	case <-p.Done():
	case <-ctx.Done():
		return
	}
	for !p.Flushed() {
		select {
		case <-s.cfg.Clock.After(flushRetryPeriod):
		case <-ctx.Done():
			return
		}
	}
	p.Stop()

	s.mu.Lock()
	if s.participants[key] == p {
		delete(s.participants, key)
	}
	s.mu.Unlock()

	entry := p.Entry()
	log.Info().Str("code", entry.Code).Str("participant", entry.Name).Msg("participant retired")
}

func (s *Service) publish(entry session.Entry, view any) {
	s.manager.Broadcast(Key(entry.Code, entry.Name), ServerMessage{Type: "state", State: view})
}
