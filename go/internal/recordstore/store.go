// Package recordstore defines the shared record contract every participant
// rendezvouses through: create, fetch by code and partial update by code.
// There are no transactions, field locks or notifications; a patch blindly
// overwrites the fields it names and nothing else.
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mcdev12/rendezvous/go/internal/models"
)

// Fields is a partial or full record keyed by top-level field name.
type Fields map[string]json.RawMessage

// Store is the remote key-addressable record store.
type Store interface {
	// Create persists a new record under code. It returns ErrAlreadyExists
	// when the code is taken and ErrCreateFailed on transient failures.
	Create(ctx context.Context, code string, kind models.SessionKind, fields Fields) error
	// Fetch returns the whole record or ErrNotFound.
	Fetch(ctx context.Context, code string) (Fields, error)
	// Patch replaces exactly the named top-level fields. It returns
	// ErrNotFound or ErrPatchFailed.
	Patch(ctx context.Context, code string, fields Fields) error
}

// FieldsOf marshals each value into its own field.
func FieldsOf(values map[string]any) (Fields, error) {
	out := make(Fields, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// Merge returns a copy of base with every field in patch replacing its
// counterpart. Backends without a native partial update use it.
func Merge(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	maps.Copy(out, base)
	maps.Copy(out, patch)
	return out
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Keys returns the field names in f.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	return keys
}
