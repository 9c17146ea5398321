package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/rendezvous/go/internal/config"
	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

var (
	// ErrUnknownCommand is returned for a command type the game does not accept.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotAuthority is returned when a non-host sends a host-only command.
	ErrNotAuthority = errors.New("only the host can do that")
	// ErrRateLimited is returned when a connection sends commands too fast.
	ErrRateLimited = errors.New("too many commands")
)

// Command types sent by the client.
const (
	CommandMove     = "move"
	CommandBet      = "bet"
	CommandSpin     = "spin"
	CommandNewRound = "new_round"
)

// Command is one client message.
type Command struct {
	Type string `json:"type"`

	// move
	Y       float64 `json:"y,omitempty"`
	Surface *struct {
		Top    float64 `json:"top"`
		Height float64 `json:"height"`
	} `json:"surface,omitempty"`

	// bet
	Bet *models.Bet `json:"bet,omitempty"`
}

// ParseCommand decodes a client message.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}
	if cmd.Type == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrUnknownCommand)
	}
	return cmd, nil
}

// Participant is one local player in one session: the polling loop, the
// authority loop when hosting, and the writer for the fields it owns.
type Participant interface {
	Entry() session.Entry
	Start(ctx context.Context)
	Stop()
	Handle(ctx context.Context, cmd Command) error
	View() any
	Done() <-chan struct{}
	// Flushed retries writes that have not landed and reports whether
	// every write so far is persisted.
	Flushed() bool
}

// Deps are shared by every participant in the process.
type Deps struct {
	Store  recordstore.Store
	Tuning config.Tuning
	Clock  clockwork.Clock

	// Publish receives every render, from the loop that produced it.
	Publish func(entry session.Entry, view any)
}

// NewParticipant builds the participant for entry. It fetches the record
// once so the host's authority starts from the stored state.
func NewParticipant(ctx context.Context, entry session.Entry, deps Deps) (Participant, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Publish == nil {
		deps.Publish = func(session.Entry, any) {}
	}

	rec, err := deps.Store.Fetch(ctx, entry.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session %s: %w", entry.Code, err)
	}

	switch entry.Kind {
	case models.SessionKindPhysicsMatch:
		m, err := models.DecodePongMatch(rec)
		if err != nil {
			return nil, err
		}
		return newPongParticipant(entry, m, deps), nil
	case models.SessionKindWagerRound:
		rt, err := models.DecodeRouletteTable(rec)
		if err != nil {
			return nil, err
		}
		return newRouletteParticipant(entry, rt, deps)
	default:
		return nil, fmt.Errorf("%w: %q", session.ErrUnknownKind, entry.Kind)
	}
}
