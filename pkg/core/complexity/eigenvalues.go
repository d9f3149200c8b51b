package complexity

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// eigenvalues computes complexity indices by direct eigendecomposition of the
// row-normalized co-occurrence matrices, taking the eigenvector of the
// second-largest eigenvalue. The largest eigenvalue belongs to the trivial
// constant eigenvector and carries no information.
//
// Eigendecomposition leaves the eigenvector sign arbitrary, so the result is
// oriented against the reflections method: if either index vector correlates
// negatively with its reflections counterpart, its sign is flipped.
func eigenvalues(m *economy.Matrix, opts Options) (*Result, error) {
	ref, err := reflections(m, Options{Method: MethodReflections})
	if err != nil {
		return nil, err
	}

	countryIdx, err := secondEigenvector(cooccurrence(m, false))
	if err != nil {
		return nil, err
	}
	productIdx, err := secondEigenvector(cooccurrence(m, true))
	if err != nil {
		return nil, err
	}

	zscore(countryIdx)
	zscore(productIdx)
	flipIfAnticorrelated(countryIdx, ref.CountryIndex)
	flipIfAnticorrelated(productIdx, ref.ProductIndex)

	return &Result{
		Countries:    m.Countries(),
		Products:     m.Products(),
		CountryIndex: countryIdx,
		ProductIndex: productIdx,
		Method:       MethodEigenvalues,
	}, nil
}

// cooccurrence builds the dense row-normalized co-occurrence matrix.
// For countries (transposed=false):
//
//	W[c,c'] = Σ_p M[c,p]·M[c',p] / (rowSum(c)·colSum(p))
//
// which is D_c⁻¹·M·D_p⁻¹·Mᵗ. With transposed=true the roles of countries and
// products swap, yielding the product×product matrix. Zero sums contribute
// nothing (degenerate rows and columns produce zero rows, not NaN).
func cooccurrence(m *economy.Matrix, transposed bool) *mat.Dense {
	nc, np := m.Dims()
	n := nc
	if transposed {
		n = np
	}
	w := mat.NewDense(n, n, nil)

	// Accumulate over the shared axis through the sparse cells: for every pair
	// of cells in the same product column (or country row when transposed),
	// add the normalized product of their values.
	type cell struct {
		idx int
		v   float64
	}
	groups := make(map[int][]cell)
	m.NonZeros(func(i, j int, v float64) {
		if transposed {
			groups[i] = append(groups[i], cell{idx: j, v: v})
		} else {
			groups[j] = append(groups[j], cell{idx: i, v: v})
		}
	})

	sharedSum := func(shared int) float64 {
		if transposed {
			return m.RowSum(shared)
		}
		return m.ColSum(shared)
	}
	ownSum := func(own int) float64 {
		if transposed {
			return m.ColSum(own)
		}
		return m.RowSum(own)
	}

	shareds := make([]int, 0, len(groups))
	for shared := range groups {
		shareds = append(shareds, shared)
	}
	sort.Ints(shareds) // fixed accumulation order keeps results bit-reproducible

	for _, shared := range shareds {
		cells := groups[shared]
		denomShared := sharedSum(shared)
		if denomShared == 0 {
			continue
		}
		for _, a := range cells {
			da := ownSum(a.idx)
			if da == 0 {
				continue
			}
			for _, b := range cells {
				w.Set(a.idx, b.idx, w.At(a.idx, b.idx)+a.v*b.v/(da*denomShared))
			}
		}
	}
	return w
}

// secondEigenvector returns the real part of the eigenvector associated with
// the second-largest eigenvalue (ordered by real part) of w.
func secondEigenvector(w *mat.Dense) ([]float64, error) {
	n, _ := w.Dims()

	var eig mat.Eigen
	if ok := eig.Factorize(w, mat.EigenRight); !ok {
		return nil, errors.New(errors.ErrCodeInternal, "eigendecomposition failed to converge")
	}

	values := eig.Values(nil)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return real(values[order[a]]) > real(values[order[b]])
	})

	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	second := order[1]
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = real(vectors.At(i, second))
	}
	return out, nil
}
