package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, NewStore())
}

func TestInjectedFailures(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rec := recordstore.Fields{"kind": json.RawMessage(`"wager-round"`)}

	s.FailCreates(1)
	if err := s.Create(ctx, "ABCD", models.SessionKindWagerRound, rec); !errors.Is(err, recordstore.ErrCreateFailed) {
		t.Fatalf("Create() error = %v, want ErrCreateFailed", err)
	}
	if err := s.Create(ctx, "ABCD", models.SessionKindWagerRound, rec); err != nil {
		t.Fatalf("Create() after injected failure error = %v", err)
	}

	s.FailPatches(2)
	for i := 0; i < 2; i++ {
		if err := s.Patch(ctx, "ABCD", rec); !errors.Is(err, recordstore.ErrPatchFailed) {
			t.Errorf("Patch() #%d error = %v, want ErrPatchFailed", i, err)
		}
	}
	if err := s.Patch(ctx, "ABCD", rec); err != nil {
		t.Errorf("Patch() error = %v", err)
	}
	if got := s.Patches(); got != 1 {
		t.Errorf("Patches() = %d, want 1", got)
	}

	s.FailFetches(1)
	if _, err := s.Fetch(ctx, "ABCD"); err == nil {
		t.Error("Fetch() error = nil, want injected failure")
	}
	if _, err := s.Fetch(ctx, "ABCD"); err != nil {
		t.Errorf("Fetch() error = %v", err)
	}
}

func TestFetchReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Create(ctx, "ABCD", models.SessionKindPhysicsMatch, recordstore.Fields{"ball_x": json.RawMessage(`50`)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec, err := s.Fetch(ctx, "ABCD")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	rec["ball_x"][0] = '9'
	rec["injected"] = json.RawMessage(`true`)

	again, err := s.Fetch(ctx, "ABCD")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := string(again["ball_x"]); got != "50" {
		t.Errorf("ball_x = %s, want 50", got)
	}
	if _, ok := again["injected"]; ok {
		t.Error("caller mutation leaked into the store")
	}
}

func TestCodes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, c := range []string{"AAAA", "BBBB"} {
		if err := s.Create(ctx, c, models.SessionKindPhysicsMatch, recordstore.Fields{}); err != nil {
			t.Fatalf("Create(%s) error = %v", c, err)
		}
	}
	if got := len(s.Codes()); got != 2 {
		t.Errorf("len(Codes()) = %d, want 2", got)
	}
}
