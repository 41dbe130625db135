// Package descriptor reproduces the seeded face descriptors the MediLink API
// uses for its demo patients, so a known patient can be re-identified without
// a capture device.
//
// The generator is a 31-bit linear congruential generator feeding a Box-Muller
// transform. It must stay bit-compatible with the server's scheme.
package descriptor

import (
	"math"
	"strconv"
	"strings"
)

// Length is the number of values in a descriptor.
const Length = 128

const (
	seedMultiplier = 12345
	lcgMultiplier  = 1103515245
	lcgIncrement   = 12345
	lcgModulus     = 1 << 31
	lcgScale       = lcgModulus - 1
	logEpsilon     = 1e-10
)

// Generate returns the descriptor for patient number n. The output is a pure
// function of n: position i is the i-th Box-Muller draw.
func Generate(n int64) []float64 {
	state := seed(n)
	out := make([]float64, Length)
	for i := range out {
		state = next(state)
		u1 := float64(state) / lcgScale
		state = next(state)
		u2 := float64(state) / lcgScale
		out[i] = math.Sqrt(-2*math.Log(u1+logEpsilon)) * math.Cos(2*math.Pi*u2)
	}
	return out
}

// ForPatient returns the descriptor for a patient id as the API stores it
// (decimal text). Non-numeric ids fall back to 0, as the server does.
func ForPatient(id string) []float64 {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		n = 0
	}
	return Generate(n)
}

// seed reduces n*12345 into [0, 2^31). Reducing first keeps the arithmetic
// inside uint64 and yields the same sequence, since the first LCG step is
// taken mod 2^31 anyway.
func seed(n int64) uint64 {
	m := (n % lcgModulus) * seedMultiplier % lcgModulus
	if m < 0 {
		m += lcgModulus
	}
	return uint64(m)
}

func next(state uint64) uint64 {
	return (state*lcgMultiplier + lcgIncrement) % lcgModulus
}
