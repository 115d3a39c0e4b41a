// Package jitter provides the random source used for heuristic jitter and
// failure fallbacks. Core code never touches the global RNG; it receives a
// Source so tests can pin values.
package jitter

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the estimators need.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// Locked wraps a *rand.Rand so it can be shared by concurrent estimators.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a goroutine-safe Source seeded with seed.
// A zero seed uses the current time.
func New(seed uint64) *Locked {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Fixed is a deterministic Source. Every draw lands at fraction Frac of the
// requested range, so Range(src, lo, hi) with Frac 0 always returns lo.
type Fixed struct {
	Frac float64
}

func (f Fixed) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(f.Frac * float64(n))
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

func (f Fixed) Float64() float64 {
	switch {
	case f.Frac < 0:
		return 0
	case f.Frac >= 1:
		return 0.999999
	}
	return f.Frac
}

// Range returns an integer in the inclusive range [lo, hi].
func Range(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}
