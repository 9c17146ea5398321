package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/rendezvous/go/internal/pong"
	"github.com/mcdev12/rendezvous/go/internal/reconciler"
	"github.com/mcdev12/rendezvous/go/internal/roulette"
)

// Tuning is the gameplay configuration.
type Tuning struct {
	Pong     pong.Tuning     `yaml:"pong"`
	Roulette roulette.Tuning `yaml:"roulette"`
	Polling  struct {
		Physics reconciler.Intervals `yaml:"physics"`
		Wager   reconciler.Intervals `yaml:"wager"`
	} `yaml:"polling"`
}

func DefaultTuning() Tuning {
	var t Tuning
	t.Pong = pong.DefaultTuning()
	t.Roulette = roulette.DefaultTuning()
	t.Polling.Physics = reconciler.DefaultPhysicsIntervals()
	t.Polling.Wager = reconciler.DefaultWagerIntervals()
	return t
}

// LoadTuning reads the YAML file at path over the defaults. Keys missing
// from the file keep their default; unknown keys are an error. An empty path
// returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	if err := t.validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) validate() error {
	switch {
	case t.Pong.TickPeriod <= 0:
		return errors.New("pong.tick_period must be positive")
	case t.Pong.WinScore <= 0:
		return errors.New("pong.win_score must be positive")
	case t.Pong.InitialSpeed > t.Pong.MaxSpeed:
		return errors.New("pong.initial_speed exceeds pong.max_speed")
	case t.Roulette.StartingChips <= 0:
		return errors.New("roulette.starting_chips must be positive")
	case t.Roulette.CheckPeriod <= 0:
		return errors.New("roulette.check_period must be positive")
	}
	for name, i := range map[string]reconciler.Intervals{"physics": t.Polling.Physics, "wager": t.Polling.Wager} {
		if i.WaitingRoom <= 0 || i.Authority <= 0 || i.Peer <= 0 {
			return fmt.Errorf("polling.%s intervals must be positive", name)
		}
	}
	return nil
}
