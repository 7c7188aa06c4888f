package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG words are derived from the one seed so a single number reproduces
// a shuffle.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// TimeSeed returns a seed taken from the wall clock, for runs without --seed.
func TimeSeed() int64 {
	return time.Now().UnixNano()
}

// Source hands out independent generators derived from one root seed. It is
// safe for concurrent use; the generators it returns are not.
type Source struct {
	mu   sync.Mutex
	root *rand.Rand
	seed int64
}

// NewSource creates a Source rooted at seed.
func NewSource(seed int64) *Source {
	return &Source{root: New(seed), seed: seed}
}

// Seed returns the root seed.
func (s *Source) Seed() int64 {
	return s.seed
}

// Next returns a fresh generator for one shuffle.
func (s *Source) Next() *rand.Rand {
	s.mu.Lock()
	child := int64(s.root.Uint64())
	s.mu.Unlock()
	return New(child)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
