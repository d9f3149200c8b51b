package complexity

import (
	"math"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// fitness runs the fitness/quality fixed-point iteration.
//
// Starting from all-ones vectors, each sweep updates
//
//	fitness[c] = 1 / Σ_p (M[c,p] / quality[p])
//	quality[p] = 1 / Σ_c (M[c,p] / fitness[c])
//
// renormalizing each vector to mean 1 after its half-step so the fixed point
// is unique up to the mean constraint. Countries or products whose sum is
// zero (isolated rows/columns, or a degenerate denominator) are defined as 0
// and excluded from the renormalization mean.
//
// The iteration stops when the largest per-entry change over a full sweep
// drops below the tolerance; exhausting the budget is a CONVERGENCE error.
func fitness(m *economy.Matrix, opts Options) (*Result, error) {
	maxIter := opts.Iterations
	if maxIter == 0 {
		maxIter = DefaultFitnessIterations
	}
	tol := opts.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}

	nc, np := m.Dims()
	fit := ones(nc)
	qual := ones(np)
	newFit := make([]float64, nc)
	newQual := make([]float64, np)

	converged := false
	ran := 0
	for it := 0; it < maxIter; it++ {
		ran = it + 1

		// Country half-step.
		for c := range newFit {
			newFit[c] = 0
		}
		m.NonZeros(func(i, j int, v float64) {
			if qual[j] > 0 {
				newFit[i] += v / qual[j]
			}
		})
		for c, sum := range newFit {
			if sum > 0 {
				newFit[c] = 1 / sum
			}
		}
		normalizeMean(newFit)

		// Product half-step, against the updated fitness.
		for p := range newQual {
			newQual[p] = 0
		}
		m.NonZeros(func(i, j int, v float64) {
			if newFit[i] > 0 {
				newQual[j] += v / newFit[i]
			}
		})
		for p, sum := range newQual {
			if sum > 0 {
				newQual[p] = 1 / sum
			}
		}
		normalizeMean(newQual)

		delta := maxDelta(fit, newFit) + maxDelta(qual, newQual)
		copy(fit, newFit)
		copy(qual, newQual)
		if delta < tol {
			converged = true
			break
		}
	}

	if !converged {
		return nil, errors.New(errors.ErrCodeConvergence,
			"fitness iteration did not stabilize within %d iterations", maxIter)
	}

	// The raw country iterate is inversely related to complexity: 1/fitness
	// converges to the Perron vector of M·Mᵗ, which grows with
	// diversification. Orient both vectors to the reflections convention -
	// country scores correlate positively with diversity, product scores
	// negatively with ubiquity - so every method agrees on direction.
	zscore(fit)
	zscore(qual)
	diversity := make([]float64, nc)
	for i := range diversity {
		diversity[i] = m.RowSum(i)
	}
	ubiquity := make([]float64, np)
	for j := range ubiquity {
		ubiquity[j] = -m.ColSum(j)
	}
	flipIfAnticorrelated(fit, diversity)
	flipIfAnticorrelated(qual, ubiquity)

	return &Result{
		Countries:    m.Countries(),
		Products:     m.Products(),
		CountryIndex: fit,
		ProductIndex: qual,
		Method:       MethodFitness,
		Iterations:   ran,
	}, nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// normalizeMean rescales the positive entries of v to mean 1.
// Zero entries (degenerate rows/columns) stay zero and are excluded from the
// mean so they cannot drag every score toward zero.
func normalizeMean(v []float64) {
	sum, n := 0.0, 0
	for _, x := range v {
		if x > 0 {
			sum += x
			n++
		}
	}
	if n == 0 || sum == 0 {
		return
	}
	mean := sum / float64(n)
	for i, x := range v {
		if x > 0 {
			v[i] = x / mean
		}
	}
}

func maxDelta(old, new []float64) float64 {
	d := 0.0
	for i := range old {
		d = math.Max(d, math.Abs(old[i]-new[i]))
	}
	return d
}
