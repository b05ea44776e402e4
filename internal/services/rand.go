package services

import "math/rand/v2"

// Rand is the randomness source behind balance synthesis. Tests inject a
// deterministic sequence to assert exact synthesized values.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }
