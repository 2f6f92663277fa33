// Package numeric collects the small numeric helpers used around the
// training loop but not tied to the computation graph itself: discounted
// reward, cosine similarity, the SMA/EMA/WMA moving averages, and a
// weighted random-choice sampler. Reductions are delegated to gonum's
// floats/stat packages rather than hand-rolled loops, matching the rest of
// this module's preference for the pack's numeric libraries over stdlib.
package numeric

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DiscountedReward returns the discounted cumulative return at every time
// step of rewards, computed backward: R[t] = rewards[t] + gamma*R[t+1].
func DiscountedReward(rewards []float64, gamma float64) []float64 {
	out := make([]float64, len(rewards))
	running := 0.0
	for i := len(rewards) - 1; i >= 0; i-- {
		running = rewards[i] + gamma*running
		out[i] = running
	}
	return out
}

// CosineSimilarity returns cos(theta) between a and b, or 0 if either has
// zero norm (that case returns before any length check). Otherwise panics
// if the slices have different lengths, via floats.Dot's own length check.
func CosineSimilarity(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// SMA returns the simple moving average of x over a trailing window of the
// given size, one value per index i >= window-1 (len(out) == len(x)-window+1).
func SMA(x []float64, window int) []float64 {
	if window <= 0 || window > len(x) {
		panic(fmt.Sprintf("numeric.SMA: invalid window %d for length %d", window, len(x)))
	}
	out := make([]float64, len(x)-window+1)
	for i := range out {
		out[i] = floats.Sum(x[i:i+window]) / float64(window)
	}
	return out
}

// EMA returns the exponential moving average of x with smoothing factor
// alpha in (0, 1]. out[0] = x[0]; out[i] = alpha*x[i] + (1-alpha)*out[i-1].
func EMA(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// WMA returns the weighted moving average of x over a trailing window,
// weighting the window's values by weights (most recent last). len(weights)
// must equal window.
func WMA(x []float64, weights []float64) []float64 {
	window := len(weights)
	if window <= 0 || window > len(x) {
		panic(fmt.Sprintf("numeric.WMA: invalid window %d for length %d", window, len(x)))
	}
	out := make([]float64, len(x)-window+1)
	for i := range out {
		out[i] = stat.Mean(x[i:i+window], weights)
	}
	return out
}

// RandomChoice returns an index into weights sampled with probability
// proportional to its weight, drawing a single uniform variate from rng.
func RandomChoice(rng *rand.Rand, weights []float64) int {
	total := floats.Sum(weights)
	if total <= 0 {
		panic("numeric.RandomChoice: weights must sum to a positive value")
	}
	target := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}
