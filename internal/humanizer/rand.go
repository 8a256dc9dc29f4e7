package humanizer

import "math/rand/v2"

// Rand is the random source threaded through a single humanize invocation.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a source seeded with seed. Equal seeds yield equal draw sequences.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomSeed returns a fresh seed for callers that do not need reproducible output.
func RandomSeed() uint64 {
	return rand.Uint64()
}

// chance reports whether a fresh draw falls below p.
func chance(rng Rand, p float64) bool {
	return rng.Float64() < p
}

func choose(rng Rand, items []string) string {
	return items[rng.IntN(len(items))]
}
