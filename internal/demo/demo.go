// Package demo produces seeded sample data for the dashboard's community
// feed and metrics views, plus the ROI calculator.
package demo

import (
	"errors"
	"math/rand/v2"
	"time"
)

// Bounds on generated sizes
const (
	DefaultCount = 12
	MaxCount     = 100
	DefaultDays  = 30
	MaxDays      = 365
)

// ErrInvalidInput is returned for out-of-range parameters
var ErrInvalidInput = errors.New("invalid demo input")

// Seed returns the seed to use: the given one, or the current time when zero
func Seed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}
