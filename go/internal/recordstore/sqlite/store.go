// Package sqlite provides a SQLite-backed record store. Partial updates are a
// single json_set statement, so concurrent patches to different fields never
// overwrite each other.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/sqlite/migrations"
)

// Store persists session records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ recordstore.Store = (*Store)(nil)

// Open opens a SQLite record store and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// sqlite has a single writer; one connection avoids SQLITE_BUSY churn
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info().Str("path", path).Msg("sqlite record store opened")
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func applyMigrations(db *sql.DB) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		stmt, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, code string, kind models.SessionKind, fields recordstore.Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", recordstore.ErrCreateFailed, err)
	}
	now := time.Now().UTC().UnixMilli()

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO session_records (code, kind, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		code, string(kind), string(body), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return recordstore.ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", recordstore.ErrCreateFailed, err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, code string) (recordstore.Fields, error) {
	var body string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT fields FROM session_records WHERE code = ?`, code,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordstore.ErrNotFound
		}
		return nil, fmt.Errorf("fetch %s: %w", code, err)
	}

	var fields recordstore.Fields
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", code, err)
	}
	return fields, nil
}

func (s *Store) Patch(ctx context.Context, code string, fields recordstore.Fields) error {
	if len(fields) == 0 {
		return nil
	}

	// json_set(fields, '$."k1"', json(?), '$."k2"', json(?), ...)
	keys := fields.Keys()
	sort.Strings(keys)
	var b strings.Builder
	args := make([]any, 0, len(keys)+2)
	b.WriteString("json_set(fields")
	for _, k := range keys {
		if strings.ContainsAny(k, `"\`) {
			return fmt.Errorf("%w: field name %q cannot be addressed", recordstore.ErrPatchFailed, k)
		}
		b.WriteString(`, '$."` + strings.ReplaceAll(k, "'", "''") + `"', json(?)`)
		args = append(args, string(fields[k]))
	}
	b.WriteString(")")
	args = append(args, time.Now().UTC().UnixMilli(), code)

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE session_records SET fields = `+b.String()+`, updated_at = ? WHERE code = ?`,
		args...,
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

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
