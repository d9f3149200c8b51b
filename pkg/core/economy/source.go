package economy

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Columns names the three fields of a tabular source.
type Columns struct {
	Country string `json:"country" toml:"country"`
	Product string `json:"product" toml:"product"`
	Value   string `json:"value" toml:"value"`
}

// DefaultColumns returns the conventional column names.
func DefaultColumns() Columns {
	return Columns{Country: "country", Product: "product", Value: "value"}
}

// Record is one tabular observation (for example a CSV row) keyed by column name.
type Record map[string]any

// Source is input that can be converted into the canonical Matrix.
//
// Exactly three shapes are accepted: [Table] for tabular records, [Grid] for a
// dense labeled grid, and *[Matrix] itself (conversion is the identity). Engines
// never see a Source - callers convert once through [Build].
type Source interface {
	toMatrix() (*Matrix, error)
}

// Table is a tabular source: a sequence of records plus column selectors.
// Duplicate (country, product) pairs are summed.
type Table struct {
	Rows    []Record
	Columns Columns
}

// Grid is a dense source with explicit labels.
// Values must be row-major with len(Values) == len(Countries) and every row
// of length len(Products).
type Grid struct {
	Countries []string
	Products  []string
	Values    [][]float64
}

// Build converts a source into the canonical Matrix.
// It is the single entry point for all input shapes; returns INVALID_INPUT
// (or a more specific code) when the source does not satisfy its contract.
func Build(src Source) (*Matrix, error) {
	if src == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil source")
	}
	return src.toMatrix()
}

// FromRecords is shorthand for Build with a Table source.
func FromRecords(rows []Record, cols Columns) (*Matrix, error) {
	return Build(Table{Rows: rows, Columns: cols})
}

func (t Table) toMatrix() (*Matrix, error) {
	cols := t.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns()
	}
	if cols.Country == "" || cols.Product == "" || cols.Value == "" {
		return nil, errors.New(errors.ErrCodeInvalidColumn, "column selectors must name country, product, and value")
	}
	if len(t.Rows) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty record set")
	}

	type pair struct{ country, product string }
	sums := make(map[pair]float64, len(t.Rows))
	countrySet := make(map[string]bool)
	productSet := make(map[string]bool)

	for n, row := range t.Rows {
		country, ok := labelField(row, cols.Country)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "record %d: missing column %q", n, cols.Country)
		}
		product, ok := labelField(row, cols.Product)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "record %d: missing column %q", n, cols.Product)
		}
		raw, ok := row[cols.Value]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "record %d: missing column %q", n, cols.Value)
		}
		v, err := numericField(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidValue, err, "record %d, column %q", n, cols.Value)
		}
		countrySet[country] = true
		productSet[product] = true
		sums[pair{country, product}] += v
	}

	countries := sortedKeys(countrySet)
	products := sortedKeys(productSet)
	b, err := NewBuilder(countries, products)
	if err != nil {
		return nil, err
	}
	rowIdx, colIdx := indexOf(countries), indexOf(products)
	for p, v := range sums {
		b.Set(rowIdx[p.country], colIdx[p.product], v)
	}
	return b.Build()
}

func (g Grid) toMatrix() (*Matrix, error) {
	if len(g.Values) != len(g.Countries) {
		return nil, errors.New(errors.ErrCodeInvalidShape, "%d value rows for %d countries",
			len(g.Values), len(g.Countries))
	}
	b, err := NewBuilder(g.Countries, g.Products)
	if err != nil {
		return nil, err
	}
	for i, row := range g.Values {
		if len(row) != len(g.Products) {
			return nil, errors.New(errors.ErrCodeInvalidShape, "row %d has %d values for %d products",
				i, len(row), len(g.Products))
		}
		for j, v := range row {
			b.Set(i, j, v)
		}
	}
	return b.Build()
}

// toMatrix on *Matrix is the identity: re-building an already canonical matrix
// yields the same matrix (idempotent aggregation).
func (m *Matrix) toMatrix() (*Matrix, error) {
	return m, nil
}

// labelField extracts a non-empty string label from a record field.
func labelField(row Record, col string) (string, bool) {
	raw, ok := row[col]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	default:
		s := fmt.Sprint(raw)
		return s, s != ""
	}
}

// numericField coerces a record field into a float64.
// Strings are parsed so CSV sources can pass values through unconverted.
func numericField(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", raw, raw)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
