// Package economy provides the canonical country×product value matrix used by
// every engine in the ecomplexity toolkit.
//
// # Overview
//
// All numeric engines (balassa, complexity, proximity, outlook) consume one
// canonical representation: a labeled sparse matrix whose rows are countries,
// whose columns are products, and whose entries are non-negative weights
// (typically export values). Matrices are value objects - immutable after
// construction - so engines can share them freely without copying or locking.
//
// Input arrives in one of three container shapes (tabular records, a dense
// labeled grid, or an existing matrix) and is converted up front by [Build].
// No engine ever dispatches on input shape; conversion happens exactly once.
//
// # Construction
//
//	m, err := economy.Build(economy.Table{
//	    Rows:    rows,
//	    Columns: economy.Columns{Country: "country", Product: "product", Value: "value"},
//	})
//
// Duplicate (country, product) pairs are summed, labels are the sorted set of
// identifiers encountered, and missing pairs default to zero.
package economy

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Entry is one nonzero cell of a Matrix, addressed by its labels.
// It is the serialization unit for JSON payloads and Mongo documents.
type Entry struct {
	Country string  `json:"country" bson:"country"`
	Product string  `json:"product" bson:"product"`
	Value   float64 `json:"value" bson:"value"`
}

// cellKey addresses one cell by row and column index.
type cellKey struct {
	row, col int
}

// Matrix is an immutable labeled country×product matrix with sparse storage.
//
// Entries are non-negative and finite; rows or columns may be entirely zero
// (isolated countries or products). Row sums, column sums, and the grand total
// are precomputed at construction since every engine needs them.
//
// The zero value is not usable - construct through [Build], [NewBuilder], or
// the convenience constructors.
type Matrix struct {
	countries []string
	products  []string
	rowIndex  map[string]int
	colIndex  map[string]int
	cells     map[cellKey]float64
	rowSums   []float64
	colSums   []float64
	total     float64
}

// Countries returns a copy of the row labels in sorted order.
func (m *Matrix) Countries() []string {
	return slices.Clone(m.countries)
}

// Products returns a copy of the column labels in sorted order.
func (m *Matrix) Products() []string {
	return slices.Clone(m.products)
}

// Dims returns the number of countries and products.
func (m *Matrix) Dims() (countries, products int) {
	return len(m.countries), len(m.products)
}

// At returns the entry at row i, column j. Missing cells are zero.
// Out-of-range indices panic, matching the behavior of gonum matrices.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= len(m.countries) || j < 0 || j >= len(m.products) {
		panic("economy: index out of range")
	}
	return m.cells[cellKey{i, j}]
}

// Value returns the entry for the given labels and whether both labels exist.
func (m *Matrix) Value(country, product string) (float64, bool) {
	i, okRow := m.rowIndex[country]
	j, okCol := m.colIndex[product]
	if !okRow || !okCol {
		return 0, false
	}
	return m.cells[cellKey{i, j}], true
}

// CountryIndex returns the row index for a country label, or -1 if unknown.
func (m *Matrix) CountryIndex(country string) int {
	if i, ok := m.rowIndex[country]; ok {
		return i
	}
	return -1
}

// ProductIndex returns the column index for a product label, or -1 if unknown.
func (m *Matrix) ProductIndex(product string) int {
	if j, ok := m.colIndex[product]; ok {
		return j
	}
	return -1
}

// RowSum returns the sum of row i.
func (m *Matrix) RowSum(i int) float64 { return m.rowSums[i] }

// ColSum returns the sum of column j.
func (m *Matrix) ColSum(j int) float64 { return m.colSums[j] }

// Total returns the sum of all entries.
func (m *Matrix) Total() float64 { return m.total }

// NonZeros calls fn for every nonzero cell in row-major order.
// Iteration order is deterministic regardless of construction order.
func (m *Matrix) NonZeros(fn func(i, j int, v float64)) {
	keys := make([]cellKey, 0, len(m.cells))
	for k := range m.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].row != keys[b].row {
			return keys[a].row < keys[b].row
		}
		return keys[a].col < keys[b].col
	})
	for _, k := range keys {
		fn(k.row, k.col, m.cells[k])
	}
}

// Entries returns the nonzero cells as labeled entries in row-major order.
func (m *Matrix) Entries() []Entry {
	out := make([]Entry, 0, len(m.cells))
	m.NonZeros(func(i, j int, v float64) {
		out = append(out, Entry{Country: m.countries[i], Product: m.products[j], Value: v})
	})
	return out
}

// NonZeroCount returns the number of stored nonzero cells.
func (m *Matrix) NonZeroCount() int { return len(m.cells) }

// Dense materializes the matrix as a fresh gonum dense matrix.
// The caller owns the result; mutating it does not affect the Matrix.
func (m *Matrix) Dense() *mat.Dense {
	d := mat.NewDense(max(len(m.countries), 1), max(len(m.products), 1), nil)
	if len(m.countries) == 0 || len(m.products) == 0 {
		return d
	}
	for k, v := range m.cells {
		d.Set(k.row, k.col, v)
	}
	return d
}

// SameShape reports whether o has identical row and column labels.
func (m *Matrix) SameShape(o *Matrix) bool {
	return slices.Equal(m.countries, o.countries) && slices.Equal(m.products, o.products)
}

// Builder accumulates cells for a Matrix under a fixed label set.
// It is the write-side counterpart of Matrix, used by engines that derive a
// new matrix from an existing one (balassa ratios, proximity, outlook gain).
type Builder struct {
	countries []string
	products  []string
	rowIndex  map[string]int
	colIndex  map[string]int
	cells     map[cellKey]float64
}

// NewBuilder creates a builder for a matrix with the given labels.
// Labels must be non-empty, unique, and are used in the order given.
func NewBuilder(countries, products []string) (*Builder, error) {
	if err := validateLabels(countries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "country labels")
	}
	if err := validateLabels(products); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "product labels")
	}
	return &Builder{
		countries: slices.Clone(countries),
		products:  slices.Clone(products),
		rowIndex:  indexOf(countries),
		colIndex:  indexOf(products),
		cells:     make(map[cellKey]float64),
	}, nil
}

// Add accumulates v into the cell at row i, column j.
func (b *Builder) Add(i, j int, v float64) {
	if v == 0 {
		return
	}
	b.cells[cellKey{i, j}] += v
}

// Set overwrites the cell at row i, column j. Setting zero clears the cell.
func (b *Builder) Set(i, j int, v float64) {
	if v == 0 {
		delete(b.cells, cellKey{i, j})
		return
	}
	b.cells[cellKey{i, j}] = v
}

// SetLabels overwrites the cell addressed by row and column label.
// Returns INVALID_INPUT when either label is not in the builder's label set.
func (b *Builder) SetLabels(country, product string, v float64) error {
	i, ok := b.rowIndex[country]
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown country label %q", country)
	}
	j, ok := b.colIndex[product]
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown product label %q", product)
	}
	b.Set(i, j, v)
	return nil
}

// Build validates the accumulated cells and returns the finished matrix.
// Returns an INVALID_VALUE error for negative, NaN, or infinite entries.
func (b *Builder) Build() (*Matrix, error) {
	m := &Matrix{
		countries: slices.Clone(b.countries),
		products:  slices.Clone(b.products),
		rowIndex:  indexOf(b.countries),
		colIndex:  indexOf(b.products),
		cells:     make(map[cellKey]float64, len(b.cells)),
		rowSums:   make([]float64, len(b.countries)),
		colSums:   make([]float64, len(b.products)),
	}
	for k, v := range b.cells {
		if k.row < 0 || k.row >= len(b.countries) || k.col < 0 || k.col >= len(b.products) {
			return nil, errors.New(errors.ErrCodeInvalidShape, "cell (%d,%d) outside %d×%d matrix",
				k.row, k.col, len(b.countries), len(b.products))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrCodeInvalidValue, "non-finite value at (%s, %s)",
				b.countries[k.row], b.products[k.col])
		}
		if v < 0 {
			return nil, errors.New(errors.ErrCodeInvalidValue, "negative value %v at (%s, %s)",
				v, b.countries[k.row], b.products[k.col])
		}
		if v == 0 {
			continue
		}
		m.cells[k] = v
		m.rowSums[k.row] += v
		m.colSums[k.col] += v
		m.total += v
	}
	return m, nil
}

func validateLabels(labels []string) error {
	if len(labels) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "label set must not be empty")
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" {
			return errors.New(errors.ErrCodeInvalidInput, "empty label")
		}
		if seen[l] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate label %q", l)
		}
		seen[l] = true
	}
	return nil
}

func indexOf(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
