package roulette

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// WheelSize is the number of pockets, 0 through 36.
const WheelSize = 37

// Wheel draws outcomes. Implementations must be safe for concurrent use.
type Wheel interface {
	Spin() int
}

// SeededWheel draws uniformly from a PCG generator, so a known seed replays
// the same sequence of outcomes.
type SeededWheel struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededWheel(seed1, seed2 uint64) *SeededWheel {
	return &SeededWheel{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewWheel returns a wheel seeded from crypto/rand.
func NewWheel() (*SeededWheel, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewSeededWheel(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

func (w *SeededWheel) Spin() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rng.IntN(WheelSize)
}
