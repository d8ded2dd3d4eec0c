package engine

import "math/rand"

// RNG is the single source of randomness for a match. *rand.Rand satisfies it.
type RNG interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// NewRNG returns a deterministic generator for seed.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation dice, not crypto
}

// RollDie returns a value in [1, sides].
func RollDie(rng RNG, sides int) int {
	if sides < 1 {
		return 1
	}
	return 1 + rng.Intn(sides)
}

// RollBetween returns a value in [lo, hi].
func RollBetween(rng RNG, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Chance draws one uniform value and reports it along with whether it fell
// below p.
func Chance(rng RNG, p float64) (float64, bool) {
	roll := rng.Float64()
	return roll, roll < p
}

// Uniform returns a value in [-spread, spread).
func Uniform(rng RNG, spread float64) float64 {
	return (rng.Float64()*2 - 1) * spread
}
