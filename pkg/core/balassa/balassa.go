// Package balassa computes the Balassa specialization index (revealed
// comparative advantage) from a country×product value matrix.
//
// The index for country c and product p is
//
//	(value[c,p] / rowSum(c)) / (colSum(p) / total)
//
// the ratio of c's share of product p to p's share of world value. Ratios can
// optionally be discretized against a cutoff, yielding the binary
// specialization matrix most downstream engines expect.
package balassa

import (
	"math"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// DefaultCutoff is the conventional discretization threshold: a country is
// specialized in a product when it exports at least its fair world share.
const DefaultCutoff = 1.0

// Options configures the index computation.
type Options struct {
	// Discrete thresholds ratios to {0,1} against Cutoff.
	Discrete bool
	// Cutoff is the discretization threshold; a ratio >= Cutoff maps to 1.
	// Must be positive and finite.
	Cutoff float64
}

// DefaultOptions returns the conventional configuration: discrete output with
// a cutoff of 1.
func DefaultOptions() Options {
	return Options{Discrete: true, Cutoff: DefaultCutoff}
}

// Index computes the Balassa specialization matrix for m.
//
// The result has the same labels and shape as m. Entries whose row or column
// sum is zero are defined as 0 (no specialization) rather than NaN. With
// opts.Discrete, entries are 1 exactly when the raw ratio is at least
// opts.Cutoff, so discretization is monotone in the cutoff.
func Index(m *economy.Matrix, opts Options) (*economy.Matrix, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil matrix")
	}
	if math.IsNaN(opts.Cutoff) || math.IsInf(opts.Cutoff, 0) || opts.Cutoff <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCutoff, "cutoff must be positive and finite, got %v", opts.Cutoff)
	}

	b, err := economy.NewBuilder(m.Countries(), m.Products())
	if err != nil {
		return nil, err
	}

	total := m.Total()
	m.NonZeros(func(i, j int, v float64) {
		rowSum := m.RowSum(i)
		colSum := m.ColSum(j)
		if rowSum == 0 || colSum == 0 || total == 0 {
			return // degenerate row/column: defined as zero
		}
		ratio := (v / rowSum) / (colSum / total)
		if opts.Discrete {
			if ratio >= opts.Cutoff {
				b.Set(i, j, 1)
			}
			return
		}
		b.Set(i, j, ratio)
	})

	return b.Build()
}
