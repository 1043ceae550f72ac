// Package entropy provides the random sources driving match resolution.
// Seeded sources are deterministic; NewSeed draws a fresh seed from crypto/rand.
package entropy

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Source is the randomness consumed by the simulation.
type Source interface {
	Float64() float64 // Uniform in [0, 1)
	IntN(n int) int   // Uniform in [0, n)
}

// Seeded is a deterministic PCG-backed source.
type Seeded struct {
	rng *rand.Rand
}

// NewSeeded creates a source that yields the same sequence for the same seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Seeded) Float64() float64 { return s.rng.Float64() }

func (s *Seeded) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.IntN(n)
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Chance reports whether a draw from src falls under p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Between returns a uniform float in [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Weighted picks an index proportional to weights. Non-positive weights are
// never picked; returns -1 when no weight is positive.
func Weighted(src Source, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := src.Float64() * total
	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i
		}
	}
	return last
}
