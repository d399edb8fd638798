package gibbs

import (
	"fmt"

	"bayesnet/internal/model"
)

// CumulativeAverage turns a sequence of domain indexes into running
// histogram estimates: row i holds, for every value d, the fraction of
// samples 0..i equal to d.
func CumulativeAverage(samples []int, size int) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no recorded samples", model.ErrPrecondition)
	}
	counts := make([]float64, size)
	out := make([][]float64, len(samples))
	for i, sample := range samples {
		counts[sample]++
		row := make([]float64, size)
		n := float64(i + 1)
		for d, c := range counts {
			row[d] = c / n
		}
		out[i] = row
	}
	return out, nil
}
