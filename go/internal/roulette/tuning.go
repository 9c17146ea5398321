package roulette

import "time"

// Tuning holds the wager-round settings. The spin lasts a fixed
// SpinDuration; set spin_duration in the tuning file to change it.
type Tuning struct {
	StartingChips int           `yaml:"starting_chips"`
	SpinDuration  time.Duration `yaml:"spin_duration"` // time between drawing and settling
	CheckPeriod   time.Duration `yaml:"check_period"`  // dealer phase loop
}

func DefaultTuning() Tuning {
	return Tuning{
		StartingChips: 1000,
		SpinDuration:  3 * time.Second,
		CheckPeriod:   100 * time.Millisecond,
	}
}
