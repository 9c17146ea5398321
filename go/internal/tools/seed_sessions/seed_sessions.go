// Command seed_sessions loads demo sessions into the session_records table.
// The table is created by the postgres record store when it first opens.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/rendezvous/go/internal/config"
	"github.com/mcdev12/rendezvous/go/internal/dbconfig"
	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/pong"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

// Fixture is one session in the YAML snapshot.
type Fixture struct {
	Code   string             `yaml:"code"`
	Kind   models.SessionKind `yaml:"kind"`
	Host   string             `yaml:"host"`
	Guests []string           `yaml:"guests"`
}

type fixtureFile struct {
	Sessions []Fixture `yaml:"sessions"`
}

// buildRecord returns the full record for f as the registry would leave it
// once every guest has joined.
func buildRecord(f Fixture, tuning config.Tuning) (recordstore.Fields, error) {
	if len(session.NormalizeCode(f.Code)) != session.CodeLength {
		return nil, fmt.Errorf("code %q must be %d characters", f.Code, session.CodeLength)
	}
	host, err := session.ValidateName(f.Host)
	if err != nil {
		return nil, err
	}
	guests := make([]string, 0, len(f.Guests))
	for _, g := range f.Guests {
		name, err := session.ValidateName(g)
		if err != nil {
			return nil, err
		}
		if name == host {
			return nil, fmt.Errorf("%w: %s", session.ErrDuplicateParticipant, name)
		}
		guests = append(guests, name)
	}

	var values map[string]any
	switch f.Kind {
	case models.SessionKindPhysicsMatch:
		if len(guests) > 1 {
			return nil, fmt.Errorf("%w: a match has one guest", session.ErrCapacityExceeded)
		}
		values = pong.NewMatch(host, tuning.Pong).InitialFields()
		if len(guests) == 1 {
			values[models.FieldPlayer2] = guests[0]
			values[models.FieldPhase] = models.PhaseActive
		}
	case models.SessionKindWagerRound:
		seats := make(map[string]models.Seat, len(guests)+1)
		for _, name := range append([]string{host}, guests...) {
			if _, taken := seats[name]; taken {
				return nil, fmt.Errorf("%w: %s", session.ErrDuplicateParticipant, name)
			}
			seats[name] = models.Seat{Chips: tuning.Roulette.StartingChips, Bets: []models.Bet{}}
		}
		values = models.RouletteTable{Phase: models.PhaseWaiting, Host: host, Seats: seats}.InitialFields()
	default:
		return nil, fmt.Errorf("%w: %q", session.ErrUnknownKind, f.Kind)
	}
	return recordstore.FieldsOf(values)
}

func loadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Sessions) == 0 {
		return nil, errors.New("no sessions in fixture file")
	}
	return file.Sessions, nil
}

func main() {
	path := flag.String("fixtures", "go/internal/assets/sessions.yaml", "YAML fixture file")
	tuningPath := flag.String("tuning", os.Getenv("TUNING_FILE"), "YAML tuning file")
	flag.Parse()

	// 1) Load the YAML snapshot
	fixtures, err := loadFixtures(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read fixtures: %v\n", err)
		os.Exit(1)
	}
	tuning, err := config.LoadTuning(*tuningPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load tuning: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	var (
		total    = len(fixtures)
		inserted int
		skipped  int
		errs     int
	)

	for _, f := range fixtures {
		fields, err := buildRecord(f, tuning)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid session %s: %v\n", f.Code, err)
			errs++
			continue
		}
		doc, err := json.Marshal(fields)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode session %s: %v\n", f.Code, err)
			errs++
			continue
		}

		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO session_records (code, kind, fields)
            VALUES ($1, $2, $3)
            ON CONFLICT (code) DO NOTHING
        `,
			session.NormalizeCode(f.Code), string(f.Kind), doc,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting session %s: %v\n", f.Code, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Sessions seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
