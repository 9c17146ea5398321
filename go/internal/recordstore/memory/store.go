// Package memory is an in-process recordstore.Store. It keeps the same
// per-field last-write-wins semantics as the remote backends and can inject
// failures so callers' retry paths can be exercised.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

type record struct {
	kind   models.SessionKind
	fields recordstore.Fields
}

// Store is a mutex-guarded map of records.
type Store struct {
	mu      sync.Mutex
	records map[string]*record

	failCreates int
	failFetches int
	failPatches int
	patches     int
}

var _ recordstore.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*record),
	}
}

func (s *Store) Create(ctx context.Context, code string, kind models.SessionKind, fields recordstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", recordstore.ErrCreateFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreates > 0 {
		s.failCreates--
		return fmt.Errorf("%w: injected failure", recordstore.ErrCreateFailed)
	}
	if _, exists := s.records[code]; exists {
		return recordstore.ErrAlreadyExists
	}
	s.records[code] = &record{kind: kind, fields: fields.Clone()}
	return nil
}

func (s *Store) Fetch(ctx context.Context, code string) (recordstore.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFetches > 0 {
		s.failFetches--
		return nil, fmt.Errorf("fetch %s: injected failure", code)
	}
	r, ok := s.records[code]
	if !ok {
		return nil, recordstore.ErrNotFound
	}
	return r.fields.Clone(), nil
}

func (s *Store) Patch(ctx context.Context, code string, fields recordstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPatches > 0 {
		s.failPatches--
		return fmt.Errorf("%w: injected failure", recordstore.ErrPatchFailed)
	}
	r, ok := s.records[code]
	if !ok {
		return recordstore.ErrNotFound
	}
	for k, v := range fields.Clone() {
		r.fields[k] = v
	}
	s.patches++
	return nil
}

// FailCreates makes the next n Create calls fail with ErrCreateFailed.
func (s *Store) FailCreates(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreates = n
}

// FailFetches makes the next n Fetch calls fail.
func (s *Store) FailFetches(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFetches = n
}

// FailPatches makes the next n Patch calls fail with ErrPatchFailed.
func (s *Store) FailPatches(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPatches = n
}

// Patches returns the number of patches applied so far.
func (s *Store) Patches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches
}

// Codes returns the codes of every stored record.
func (s *Store) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.records))
	for code := range s.records {
		codes = append(codes, code)
	}
	return codes
}
