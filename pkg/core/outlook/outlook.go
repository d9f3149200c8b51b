// Package outlook computes forward-looking diversification indicators from a
// specialization matrix, a product proximity matrix, and product complexity
// scores.
//
// Density measures how close a country's current export basket sits to each
// product. The complexity outlook gain weighs the unrealized products by
// their complexity and proximity, and the outlook index aggregates the gains
// into a single per-country number.
package outlook

import (
	"github.com/tradelens/ecomplexity/pkg/core/complexity"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Indicator is a dense country×product table of indicator values. Unlike
// economy matrices, entries may be negative: the gain indicator inherits the
// sign of the standardized complexity scores.
type Indicator struct {
	countries []string
	products  []string
	rowIndex  map[string]int
	colIndex  map[string]int
	values    [][]float64
}

func newIndicator(countries, products []string) *Indicator {
	ind := &Indicator{
		countries: countries,
		products:  products,
		rowIndex:  make(map[string]int, len(countries)),
		colIndex:  make(map[string]int, len(products)),
		values:    make([][]float64, len(countries)),
	}
	for i, c := range countries {
		ind.rowIndex[c] = i
		ind.values[i] = make([]float64, len(products))
	}
	for j, p := range products {
		ind.colIndex[p] = j
	}
	return ind
}

// Countries returns the row labels in order.
func (ind *Indicator) Countries() []string { return ind.countries }

// Products returns the column labels in order.
func (ind *Indicator) Products() []string { return ind.products }

// At returns the value at positional indices. It panics when out of range.
func (ind *Indicator) At(i, j int) float64 { return ind.values[i][j] }

// Value returns the entry for a country/product pair, zero when either label
// is unknown.
func (ind *Indicator) Value(country, product string) float64 {
	i, ok := ind.rowIndex[country]
	if !ok {
		return 0
	}
	j, ok := ind.colIndex[product]
	if !ok {
		return 0
	}
	return ind.values[i][j]
}

// Result holds the outlook indicators. Density and Gain share the country and
// product axes of the input specialization matrix; Index is per country.
type Result struct {
	Density *Indicator         `json:"density" bson:"density"`
	Gain    *Indicator         `json:"gain" bson:"gain"`
	Index   map[string]float64 `json:"index" bson:"index"`
}

// Measures computes density, complexity outlook gain, and the complexity
// outlook index.
//
// The specialization matrix is binarized at 1: a country counts as
// specialized in a product when its entry is at least 1, which matches the
// discrete Balassa output directly and gives continuous indices a natural
// cutoff. Products absent from the complexity result contribute zero gain.
func Measures(specialization *economy.Matrix, productProximity *economy.Matrix, scores *complexity.Result) (*Result, error) {
	if specialization == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil specialization matrix")
	}
	if productProximity == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil proximity matrix")
	}
	if scores == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil complexity result")
	}
	products := specialization.Products()
	prows, pcols := productProximity.Dims()
	if prows != pcols || prows != len(products) {
		return nil, errors.New(errors.ErrCodeInvalidShape,
			"proximity matrix is %d×%d, want %d×%d to match the product axis", prows, pcols, len(products), len(products))
	}

	countries := specialization.Countries()

	// Binarized specialization and the per-product proximity vectors are
	// gathered once; both input matrices are sparse.
	spec := make([][]bool, len(countries))
	for c := range spec {
		spec[c] = make([]bool, len(products))
	}
	specialization.NonZeros(func(c, p int, v float64) {
		if v >= 1 {
			spec[c][p] = true
		}
	})

	prox := make([][]float64, len(products))
	proxTotal := make([]float64, len(products))
	for p := range prox {
		prox[p] = make([]float64, len(products))
	}
	productProximity.NonZeros(func(p, q int, v float64) {
		prox[p][q] = v
		proxTotal[p] += v
	})

	pci := make([]float64, len(products))
	for p, label := range products {
		pci[p], _ = scores.ProductValue(label) // zero when absent
	}

	density := newIndicator(countries, products)
	gain := newIndicator(countries, products)
	index := make(map[string]float64, len(countries))

	for c, country := range countries {
		var indexNum, indexDen float64
		for p := range products {
			var overlap float64
			for q := range products {
				if spec[c][q] {
					overlap += prox[p][q]
				}
			}
			if proxTotal[p] > 0 {
				density.values[c][p] = overlap / proxTotal[p]
			}

			if !spec[c][p] {
				var g float64
				for q := range products {
					if !spec[c][q] {
						g += prox[p][q] * pci[q]
					}
				}
				gain.values[c][p] = g
			}

			indexNum += density.values[c][p] * gain.values[c][p]
			indexDen += density.values[c][p]
		}
		if indexDen > 0 {
			index[country] = indexNum / indexDen
		} else {
			index[country] = 0
		}
	}

	return &Result{Density: density, Gain: gain, Index: index}, nil
}
