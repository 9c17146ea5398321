package remote

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

func TestEnvelope(t *testing.T) {
	fields := recordstore.Fields{
		"ball_x":   json.RawMessage(`51.4`),
		"player2":  json.RawMessage(`null`),
		"seat:ana": json.RawMessage(`{"chips":950,"bets":[{"kind":"color","selector":"red","stake":50}]}`),
	}

	got, err := envelope("ABCD", fields, map[string]string{keyKind: "wager-round"})
	if err != nil {
		t.Fatalf("envelope() error = %v", err)
	}

	seat := map[string]any{
		"chips": 950.0,
		"bets":  []any{map[string]any{"kind": "color", "selector": "red", "stake": 50.0}},
	}
	want, err := structpb.NewStruct(map[string]any{
		"code":   "ABCD",
		"kind":   "wager-round",
		"fields": map[string]any{"ball_x": 51.4, "player2": nil, "seat:ana": seat},
	})
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}

	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("envelope() mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsRoundTripThroughStruct(t *testing.T) {
	in := recordstore.Fields{
		"score1":  json.RawMessage(`3`),
		"outcome": json.RawMessage(`null`),
		"ledger":  json.RawMessage(`{"ana":1790}`),
	}
	s, err := fieldsToStruct(in)
	if err != nil {
		t.Fatalf("fieldsToStruct() error = %v", err)
	}
	out, err := structToFields(s)
	if err != nil {
		t.Fatalf("structToFields() error = %v", err)
	}

	for k, raw := range in {
		var want, got any
		_ = json.Unmarshal(raw, &want)
		if err := json.Unmarshal(out[k], &got); err != nil {
			t.Fatalf("field %s: %v", k, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("field %s mismatch (-want +got):\n%s", k, diff)
		}
	}
}

func TestFieldsToStructRejectsInvalidJSON(t *testing.T) {
	if _, err := fieldsToStruct(recordstore.Fields{"bad": json.RawMessage(`{`)}); err == nil {
		t.Error("fieldsToStruct() error = nil, want error")
	}
}
