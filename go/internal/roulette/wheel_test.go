package roulette

import "testing"

func TestSeededWheelIsReproducible(t *testing.T) {
	a := NewSeededWheel(7, 11)
	b := NewSeededWheel(7, 11)
	for i := 0; i < 100; i++ {
		if x, y := a.Spin(), b.Spin(); x != y {
			t.Fatalf("spin %d: %d != %d for the same seed", i, x, y)
		}
	}
}

func TestWheelCoversEveryPocket(t *testing.T) {
	w, err := NewWheel()
	if err != nil {
		t.Fatalf("NewWheel() error = %v", err)
	}
	seen := make(map[int]bool)
	for i := 0; i < 5000; i++ {
		n := w.Spin()
		if n < 0 || n >= WheelSize {
			t.Fatalf("Spin() = %d, out of range", n)
		}
		seen[n] = true
	}
	if len(seen) != WheelSize {
		t.Errorf("pockets seen = %d, want %d", len(seen), WheelSize)
	}
}
