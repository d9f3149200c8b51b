package complexity

import (
	"github.com/tradelens/ecomplexity/pkg/core/economy"
)

// reflections runs the method of reflections: power iteration on the
// row-normalized co-occurrence matrices M·Mᵗ and Mᵗ·M, expressed as the
// classic two half-step recursion over diversity and ubiquity,
//
//	k_c(n) = (1/k_c(0)) Σ_p M[c,p] · k_p(n-1)
//	k_p(n) = (1/k_p(0)) Σ_c M[c,p] · k_c(n-1)
//
// seeded with k_c(0) = rowSum (diversity) and k_p(0) = colSum (ubiquity).
// The trivial leading eigenvector of the row-stochastic iteration matrix is
// constant, so after a fixed number of sweeps the z-score of the iterate
// isolates the direction of the second eigenvector - the informative one.
// The sweep count is fixed, not convergence-driven: running to the true fixed
// point would leave only the constant component.
//
// Countries or products with zero initial degree stay at 0 throughout.
func reflections(m *economy.Matrix, opts Options) (*Result, error) {
	sweeps := opts.Iterations
	if sweeps == 0 {
		sweeps = DefaultReflectionsIterations
	}
	// Even sweep counts keep the country iterate on the diversity side of the
	// alternation, which is the canonical orientation.
	if sweeps%2 != 0 {
		sweeps++
	}

	nc, np := m.Dims()
	kc0 := make([]float64, nc)
	kp0 := make([]float64, np)
	for i := 0; i < nc; i++ {
		kc0[i] = m.RowSum(i)
	}
	for j := 0; j < np; j++ {
		kp0[j] = m.ColSum(j)
	}

	kc := append([]float64(nil), kc0...)
	kp := append([]float64(nil), kp0...)
	nextKc := make([]float64, nc)
	nextKp := make([]float64, np)

	for n := 0; n < sweeps; n++ {
		for i := range nextKc {
			nextKc[i] = 0
		}
		for j := range nextKp {
			nextKp[j] = 0
		}
		m.NonZeros(func(i, j int, v float64) {
			nextKc[i] += v * kp[j]
			nextKp[j] += v * kc[i]
		})
		for i := range nextKc {
			if kc0[i] > 0 {
				nextKc[i] /= kc0[i]
			} else {
				nextKc[i] = 0
			}
		}
		for j := range nextKp {
			if kp0[j] > 0 {
				nextKp[j] /= kp0[j]
			} else {
				nextKp[j] = 0
			}
		}
		kc, nextKc = nextKc, kc
		kp, nextKp = nextKp, kp
	}

	zscore(kc)
	zscore(kp)

	return &Result{
		Countries:    m.Countries(),
		Products:     m.Products(),
		CountryIndex: kc,
		ProductIndex: kp,
		Method:       MethodReflections,
		Iterations:   sweeps,
	}, nil
}
