// Package logspace holds the log-domain arithmetic shared by the factor
// graph and both inference engines.
package logspace

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Zero stands in for log(0). It keeps sums of log-potentials finite.
const Zero = -1e6

// Log maps a non-negative potential into the log domain.
func Log(p float64) float64 {
	if p <= 0 {
		return Zero
	}
	return math.Log(p)
}

// SumExp returns log(sum(exp(xs))). An empty vector yields -Inf.
func SumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(xs)
}

// AddExp returns log(exp(a) + exp(b)).
func AddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// Normalize subtracts the log-partition from xs in place and returns it.
func Normalize(xs []float64) []float64 {
	floats.AddConst(-SumExp(xs), xs)
	return xs
}

// Probabilities exponentiates a normalized log vector into a new slice.
func Probabilities(logdist []float64) []float64 {
	out := make([]float64, len(logdist))
	for i, v := range logdist {
		out[i] = math.Exp(v)
	}
	return out
}

// Draw samples an index from the distribution whose unnormalized log
// weights are logw. logw is normalized in place.
func Draw(logw []float64, rng *rand.Rand) int {
	weights := Probabilities(Normalize(logw))
	return int(distuv.NewCategorical(weights, rng).Rand())
}
