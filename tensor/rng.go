package tensor

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// RNG is a seedable random source shared by Graph's random-fill helpers and
// by the Dropout and Sampler operators, which each need their own
// distribution (Bernoulli, Normal) drawn from the same underlying stream.
type RNG struct {
	src *rand.Rand
}

// NewRNG returns an RNG seeded with seed. The same seed always produces the
// same sequence of draws, which the graph package relies on for
// reproducible dFdX gradient checks.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(uint64(seed)))}
}

// Uniform draws a value uniformly from [lo, hi).
func (r *RNG) Uniform(lo, hi float64) float64 {
	return lo + r.src.Float64()*(hi-lo)
}

// Normal draws a value from a Normal(mu, sigma) distribution.
func (r *RNG) Normal(mu, sigma float64) float64 {
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: r.src}
	return d.Rand()
}

// Bernoulli draws a 0/1 value with P(1) = p.
func (r *RNG) Bernoulli(p float64) float64 {
	d := distuv.Bernoulli{P: p, Src: r.src}
	return d.Rand()
}

// Random returns a rows x cols tensor with entries drawn uniformly from
// [lo, hi).
func Random(rows, cols int, rng *RNG, lo, hi float64) *Tensor {
	t := Zeros(rows, cols)
	for i := range t.data {
		t.data[i] = rng.Uniform(lo, hi)
	}
	return t
}

// RandomNormal returns a rows x cols tensor with entries drawn from
// Normal(mu, sigma), the usual choice for parameter initialization.
func RandomNormal(rows, cols int, rng *RNG, mu, sigma float64) *Tensor {
	t := Zeros(rows, cols)
	for i := range t.data {
		t.data[i] = rng.Normal(mu, sigma)
	}
	return t
}

// BernoulliMask returns a rows x cols tensor whose entries are
// independently 1/keepProb with probability keepProb, else 0 — the inverted
// dropout mask.
func BernoulliMask(rows, cols int, rng *RNG, keepProb float64) *Tensor {
	t := Zeros(rows, cols)
	for i := range t.data {
		t.data[i] = rng.Bernoulli(keepProb) / keepProb
	}
	return t
}
