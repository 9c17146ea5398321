// Package postgres stores session records as one JSONB document per code.
// Patch uses the jsonb concatenation operator, which replaces exactly the
// top-level keys it is given in a single statement.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS session_records (
    code       TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a recordstore.Store backed by Postgres.
type Store struct {
	db *sql.DB
}

var _ recordstore.Store = (*Store)(nil)

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Msg("postgres record store connected")
	return s, nil
}

// Migrate creates the session_records table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create session_records: %w", err)
	}
	return nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, code string, kind models.SessionKind, fields recordstore.Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", recordstore.ErrCreateFailed, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_records (code, kind, fields) VALUES ($1, $2, $3)`,
		code, string(kind), pqtype.NullRawMessage{RawMessage: body, Valid: true},
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return recordstore.ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", recordstore.ErrCreateFailed, err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, code string) (recordstore.Fields, error) {
	var raw pqtype.NullRawMessage
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM session_records WHERE code = $1`, code,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", code, err)
	}

	fields := recordstore.Fields{}
	if !raw.Valid {
		return fields, nil
	}
	if err := json.Unmarshal(raw.RawMessage, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", code, err)
	}
	return fields, nil
}

func (s *Store) Patch(ctx context.Context, code string, fields recordstore.Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: encode patch: %v", recordstore.ErrPatchFailed, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE session_records
		    SET fields = fields || $2::jsonb, updated_at = now()
		  WHERE code = $1`,
		code, pqtype.NullRawMessage{RawMessage: body, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, err)
	}
	if n == 0 {
		return recordstore.ErrNotFound
	}
	return nil
}
