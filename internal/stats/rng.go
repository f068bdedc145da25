package stats

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
)

const (
	// DefaultSeed is used when no seed is configured.
	DefaultSeed int64 = 42
	// GeneratorFamily names the bit generator behind Sampler.
	GeneratorFamily = "PCG"
	// DType is the floating point width used by every computation.
	DType = "float64"
)

// Sampler is a seeded pseudo random source. It is not safe for concurrent use.
type Sampler struct {
	seed int64
	rng  *rand.Rand
}

// NewSampler returns a PCG sampler seeded deterministically from seed.
func NewSampler(seed int64) *Sampler {
	hi, lo := splitSeed(seed)
	return &Sampler{seed: seed, rng: rand.New(rand.NewPCG(hi, lo))}
}

// Seed returns the seed the sampler was built from.
func (s *Sampler) Seed() int64 { return s.seed }

// Family returns the bit generator family name.
func (s *Sampler) Family() string { return GeneratorFamily }

// IntN returns a uniform integer in [0, n).
func (s *Sampler) IntN(n int) int { return s.rng.IntN(n) }

// Float64 returns a uniform float in [0, 1).
func (s *Sampler) Float64() float64 { return s.rng.Float64() }

// Normal draws n values from N(mean, std^2).
func (s *Sampler) Normal(n int, mean, std float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + std*s.rng.NormFloat64()
	}
	return out
}

// Uniform draws n values from [lo, hi).
func (s *Sampler) Uniform(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*s.rng.Float64()
	}
	return out
}

// DeriveSeed maps (seed, index) to an independent child seed.
func DeriveSeed(seed int64, index int) int64 {
	sum := sha256.Sum256([]byte(strconv.FormatInt(seed, 10) + "|" + strconv.Itoa(index)))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

func splitSeed(seed int64) (uint64, uint64) {
	sum := sha256.Sum256([]byte(strconv.FormatInt(seed, 10)))
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}
