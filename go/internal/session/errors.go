package session

import (
	"errors"

	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

var (
	// ErrNotFound is returned when no session exists for a code.
	ErrNotFound = recordstore.ErrNotFound
	// ErrCapacityExceeded is returned when a physics match already has two players.
	ErrCapacityExceeded = errors.New("session is full")
	// ErrDuplicateParticipant is returned when the name is already taken in the session.
	ErrDuplicateParticipant = errors.New("name already taken in this session")
	// ErrInvalidName is returned for empty, overlong or unprintable display names.
	ErrInvalidName = errors.New("invalid display name")
	// ErrUnknownKind is returned for a session kind the registry cannot create.
	ErrUnknownKind = errors.New("unknown session kind")
	// ErrCodesExhausted is returned when every generated code collided.
	ErrCodesExhausted = errors.New("could not find a free session code")
)
