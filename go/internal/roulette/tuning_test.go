package roulette

import (
	"testing"
	"time"
)

func TestDefaultTuning(t *testing.T) {
	got := DefaultTuning()
	if got.SpinDuration != 3*time.Second {
		t.Errorf("SpinDuration = %v, want 3s", got.SpinDuration)
	}
	if got.StartingChips != 1000 {
		t.Errorf("StartingChips = %d, want 1000", got.StartingChips)
	}
}
