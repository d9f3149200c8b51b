// Package proximity computes country-country and product-product similarity
// matrices from a specialization matrix.
//
// Proximity between two countries (or two products) is their co-occurrence
// overlap normalized by the larger of their totals:
//
//	prox[c,c'] = Σ_p min(M[c,p], M[c',p]) / max(Σ_p M[c,p], Σ_p M[c',p])
//
// That keeps every value in [0,1]: identical specialization vectors reach 1,
// disjoint ones score 0, and the normalization by the more diversified side
// prevents a narrow country from appearing close to everything. The matrices
// are symmetric by construction and the diagonal is excluded (stored as zero,
// no self-proximity).
package proximity

import (
	"math"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Result holds the two similarity matrices. Each matrix is square with
// identical row and column labels (countries×countries and
// products×products).
type Result struct {
	// Country is the country×country proximity matrix.
	Country *economy.Matrix `json:"country" bson:"country"`
	// Product is the product×product proximity matrix.
	Product *economy.Matrix `json:"product" bson:"product"`
}

// Proximity computes both similarity matrices for the specialization matrix m.
// Rows or columns summing to zero produce zero proximity everywhere
// (degenerate denominators never raise NaN).
func Proximity(m *economy.Matrix) (*Result, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil matrix")
	}

	country, err := pairwise(m, false)
	if err != nil {
		return nil, err
	}
	product, err := pairwise(m, true)
	if err != nil {
		return nil, err
	}
	return &Result{Country: country, Product: product}, nil
}

// cell is one entry of an entity's sparse vector along the shared axis.
type cell struct {
	idx int
	v   float64
}

// pairwise computes the square similarity matrix over rows of m, or over
// columns when transposed.
func pairwise(m *economy.Matrix, transposed bool) (*economy.Matrix, error) {
	labels := m.Countries()
	if transposed {
		labels = m.Products()
	}
	n := len(labels)

	// Gather each entity's sparse vector along the shared axis.
	vectors := make([][]cell, n)
	totals := make([]float64, n)
	m.NonZeros(func(i, j int, v float64) {
		own, shared := i, j
		if transposed {
			own, shared = j, i
		}
		vectors[own] = append(vectors[own], cell{idx: shared, v: v})
		totals[own] += v
	})

	b, err := economy.NewBuilder(labels, labels)
	if err != nil {
		return nil, err
	}

	for a := 0; a < n; a++ {
		for bIdx := a + 1; bIdx < n; bIdx++ {
			denom := math.Max(totals[a], totals[bIdx])
			if denom == 0 {
				continue // both entities are all-zero: proximity defined as 0
			}
			overlap := sparseMinOverlap(vectors[a], vectors[bIdx])
			if overlap == 0 {
				continue
			}
			p := overlap / denom
			b.Set(a, bIdx, p)
			b.Set(bIdx, a, p) // symmetric by construction
		}
	}
	return b.Build()
}

// sparseMinOverlap returns Σ min(x[k], y[k]) over the shared axis for two
// sparse vectors sorted by index (NonZeros iterates in row-major order, so
// both are already sorted).
func sparseMinOverlap(x, y []cell) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		switch {
		case x[i].idx < y[j].idx:
			i++
		case x[i].idx > y[j].idx:
			j++
		default:
			sum += math.Min(x[i].v, y[j].v)
			i++
			j++
		}
	}
	return sum
}
