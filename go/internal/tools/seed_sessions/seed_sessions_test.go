package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/rendezvous/go/internal/config"
	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

func TestBuildRecordMatchWithGuest(t *testing.T) {
	fields, err := buildRecord(Fixture{Code: "px3r", Kind: models.SessionKindPhysicsMatch, Host: "ana", Guests: []string{"bo"}}, config.DefaultTuning())
	if err != nil {
		t.Fatalf("buildRecord() error = %v", err)
	}
	m, err := models.DecodePongMatch(fields)
	if err != nil {
		t.Fatalf("DecodePongMatch() error = %v", err)
	}
	if m.Player1 != "ana" || m.Player2 != "bo" || m.Phase != models.PhaseActive {
		t.Errorf("match = %+v, want ana vs bo, active", m)
	}
}

func TestBuildRecordTable(t *testing.T) {
	tuning := config.DefaultTuning()
	tuning.Roulette.StartingChips = 300
	fields, err := buildRecord(Fixture{Code: "WGR5", Kind: models.SessionKindWagerRound, Host: "ana", Guests: []string{"bo"}}, tuning)
	if err != nil {
		t.Fatalf("buildRecord() error = %v", err)
	}
	rt, err := models.DecodeRouletteTable(fields)
	if err != nil {
		t.Fatalf("DecodeRouletteTable() error = %v", err)
	}
	want := map[string]models.Seat{
		"ana": {Chips: 300, Bets: []models.Bet{}},
		"bo":  {Chips: 300, Bets: []models.Bet{}},
	}
	if diff := cmp.Diff(want, rt.Seats); diff != "" {
		t.Errorf("seats mismatch (-want +got):\n%s", diff)
	}
	if rt.Phase != models.PhaseWaiting || rt.Host != "ana" {
		t.Errorf("table = %s hosted by %s, want waiting hosted by ana", rt.Phase, rt.Host)
	}
}

func TestBuildRecordRejects(t *testing.T) {
	tests := []struct {
		name    string
		fixture Fixture
		wantErr error
	}{
		{"two match guests", Fixture{Code: "PX2Q", Kind: models.SessionKindPhysicsMatch, Host: "ana", Guests: []string{"bo", "cy"}}, session.ErrCapacityExceeded},
		{"guest is host", Fixture{Code: "PX2Q", Kind: models.SessionKindWagerRound, Host: "ana", Guests: []string{" ana "}}, session.ErrDuplicateParticipant},
		{"repeated guest", Fixture{Code: "PX2Q", Kind: models.SessionKindWagerRound, Host: "ana", Guests: []string{"bo", "bo"}}, session.ErrDuplicateParticipant},
		{"bad host", Fixture{Code: "PX2Q", Kind: models.SessionKindWagerRound, Host: ""}, session.ErrInvalidName},
		{"bad kind", Fixture{Code: "PX2Q", Kind: "chess", Host: "ana"}, session.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildRecord(tt.fixture, config.DefaultTuning()); !errors.Is(err, tt.wantErr) {
				t.Errorf("buildRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := buildRecord(Fixture{Code: "LONGER", Kind: models.SessionKindPhysicsMatch, Host: "ana"}, config.DefaultTuning()); err == nil {
		t.Error("buildRecord() error = nil for a bad code")
	}
}

func TestLoadFixtures(t *testing.T) {
	fixtures, err := loadFixtures(filepath.Join("..", "..", "assets", "sessions.yaml"))
	if err != nil {
		t.Fatalf("loadFixtures() error = %v", err)
	}
	for _, f := range fixtures {
		if _, err := buildRecord(f, config.DefaultTuning()); err != nil {
			t.Errorf("fixture %s: %v", f.Code, err)
		}
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("sessions: []\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := loadFixtures(empty); err == nil {
		t.Error("loadFixtures() error = nil for an empty file")
	}
}
