// Package storetest holds the behavior every recordstore.Store backend must share.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// Run exercises store against the record contract. Each subtest uses its own code.
func Run(t *testing.T, store recordstore.Store) {
	t.Helper()

	t.Run("create and fetch", func(t *testing.T) { testCreateFetch(t, store) })
	t.Run("create duplicate", func(t *testing.T) { testCreateDuplicate(t, store) })
	t.Run("fetch missing", func(t *testing.T) { testFetchMissing(t, store) })
	t.Run("patch missing", func(t *testing.T) { testPatchMissing(t, store) })
	t.Run("patch named fields only", func(t *testing.T) { testPatchNamedFieldsOnly(t, store) })
	t.Run("patch replaces nested values", func(t *testing.T) { testPatchReplacesNested(t, store) })
	t.Run("concurrent disjoint patches", func(t *testing.T) { testConcurrentDisjointPatches(t, store) })
}

// code returns a fresh code per run so shared backends can be reused.
func code(t *testing.T, suffix string) string {
	t.Helper()
	return fmt.Sprintf("T%s-%d", suffix, time.Now().UnixNano())
}

func fields(t *testing.T, values map[string]any) recordstore.Fields {
	t.Helper()
	f, err := recordstore.FieldsOf(values)
	if err != nil {
		t.Fatalf("FieldsOf() error = %v", err)
	}
	return f
}

// decoded normalizes a record so backends that re-encode JSON compare equal.
func decoded(t *testing.T, f recordstore.Fields) map[string]any {
	t.Helper()
	out := make(map[string]any, len(f))
	for k, raw := range f {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("field %q is not JSON: %v", k, err)
		}
		out[k] = v
	}
	return out
}

func create(t *testing.T, store recordstore.Store, c string, values map[string]any) {
	t.Helper()
	if err := store.Create(context.Background(), c, models.SessionKindPhysicsMatch, fields(t, values)); err != nil {
		t.Fatalf("Create(%s) error = %v", c, err)
	}
}

func fetch(t *testing.T, store recordstore.Store, c string) map[string]any {
	t.Helper()
	rec, err := store.Fetch(context.Background(), c)
	if err != nil {
		t.Fatalf("Fetch(%s) error = %v", c, err)
	}
	return decoded(t, rec)
}

func testCreateFetch(t *testing.T, store recordstore.Store) {
	c := code(t, "CF1")
	values := map[string]any{
		"kind":    "physics-match",
		"phase":   "waiting",
		"player1": "ana",
		"player2": nil,
		"ball_x":  50.0,
		"score1":  0.0,
	}
	create(t, store, c, values)

	if diff := cmp.Diff(values, fetch(t, store, c)); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func testCreateDuplicate(t *testing.T, store recordstore.Store) {
	c := code(t, "DUP")
	create(t, store, c, map[string]any{"kind": "wager-round", "host": "ana"})

	err := store.Create(context.Background(), c, models.SessionKindWagerRound,
		fields(t, map[string]any{"kind": "wager-round", "host": "bo"}))
	if !errors.Is(err, recordstore.ErrAlreadyExists) {
		t.Fatalf("second Create() error = %v, want ErrAlreadyExists", err)
	}
	if got := fetch(t, store, c)["host"]; got != "ana" {
		t.Errorf("host = %v, want ana (original record kept)", got)
	}
}

func testFetchMissing(t *testing.T, store recordstore.Store) {
	_, err := store.Fetch(context.Background(), code(t, "NOPE"))
	if !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func testPatchMissing(t *testing.T, store recordstore.Store) {
	err := store.Patch(context.Background(), code(t, "GONE"), fields(t, map[string]any{"a": 1}))
	if !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("Patch() error = %v, want ErrNotFound", err)
	}
}

func testPatchNamedFieldsOnly(t *testing.T, store recordstore.Store) {
	c := code(t, "PNF")
	create(t, store, c, map[string]any{
		"kind":      "physics-match",
		"ball_x":    50.0,
		"paddle1_y": 41.0,
		"player2":   nil,
	})

	err := store.Patch(context.Background(), c, fields(t, map[string]any{
		"ball_x":  51.4,
		"player2": "bo",
		"extra":   true,
	}))
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	want := map[string]any{
		"kind":      "physics-match",
		"ball_x":    51.4,
		"paddle1_y": 41.0,
		"player2":   "bo",
		"extra":     true,
	}
	if diff := cmp.Diff(want, fetch(t, store, c)); diff != "" {
		t.Errorf("record after Patch() mismatch (-want +got):\n%s", diff)
	}
}

func testPatchReplacesNested(t *testing.T, store recordstore.Store) {
	c := code(t, "NST")
	create(t, store, c, map[string]any{
		"kind":     "wager-round",
		"seat:ana": map[string]any{"chips": 1000.0, "bets": []any{}},
		"ledger":   map[string]any{"ana": 10.0, "bo": 0.0},
	})

	err := store.Patch(context.Background(), c, fields(t, map[string]any{
		"ledger":  map[string]any{"ana": 5.0},
		"outcome": nil,
	}))
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	got := fetch(t, store, c)
	if diff := cmp.Diff(map[string]any{"ana": 5.0}, got["ledger"]); diff != "" {
		t.Errorf("ledger was merged instead of replaced (-want +got):\n%s", diff)
	}
	if v, ok := got["outcome"]; !ok || v != nil {
		t.Errorf("outcome = %v (present %v), want explicit null", v, ok)
	}
	if _, ok := got["seat:ana"]; !ok {
		t.Error("seat:ana dropped by unrelated patch")
	}
}

func testConcurrentDisjointPatches(t *testing.T, store recordstore.Store) {
	c := code(t, "CON")
	create(t, store, c, map[string]any{
		"kind":      "physics-match",
		"ball_x":    50.0,
		"paddle2_y": 50.0,
	})

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 1; i <= rounds; i++ {
		ball := fields(t, map[string]any{"ball_x": float64(i)})
		paddle := fields(t, map[string]any{"paddle2_y": float64(100 + i)})
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- store.Patch(context.Background(), c, ball)
		}()
		go func() {
			defer wg.Done()
			errs <- store.Patch(context.Background(), c, paddle)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Patch() error = %v", err)
		}
	}

	got := fetch(t, store, c)
	if x, _ := got["ball_x"].(float64); x < 1 || x > rounds {
		t.Errorf("ball_x = %v, want one of the authority writes", got["ball_x"])
	}
	if y, _ := got["paddle2_y"].(float64); y < 101 || y > 100+rounds {
		t.Errorf("paddle2_y = %v, want one of the participant writes", got["paddle2_y"])
	}
}
