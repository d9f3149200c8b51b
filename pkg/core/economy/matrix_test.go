package economy

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

func mustMatrix(t *testing.T, src Source) *Matrix {
	t.Helper()
	m, err := Build(src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestBuildFromRecords(t *testing.T) {
	rows := []Record{
		{"country": "deu", "product": "cars", "value": 10.0},
		{"country": "deu", "product": "cars", "value": 5.0}, // duplicate pair, summed
		{"country": "arg", "product": "beef", "value": 7.0},
		{"country": "arg", "product": "cars", "value": 0.0}, // explicit zero stays sparse
	}

	m := mustMatrix(t, Table{Rows: rows, Columns: DefaultColumns()})

	wantCountries := []string{"arg", "deu"}
	wantProducts := []string{"beef", "cars"}
	if got := m.Countries(); len(got) != 2 || got[0] != wantCountries[0] || got[1] != wantCountries[1] {
		t.Errorf("Countries() = %v, want %v", got, wantCountries)
	}
	if got := m.Products(); len(got) != 2 || got[0] != wantProducts[0] || got[1] != wantProducts[1] {
		t.Errorf("Products() = %v, want %v", got, wantProducts)
	}

	if v, _ := m.Value("deu", "cars"); v != 15 {
		t.Errorf("Value(deu, cars) = %v, want 15 (duplicates summed)", v)
	}
	if v, _ := m.Value("arg", "cars"); v != 0 {
		t.Errorf("Value(arg, cars) = %v, want 0", v)
	}
	if m.Total() != 22 {
		t.Errorf("Total() = %v, want 22", m.Total())
	}
	if m.NonZeroCount() != 2 {
		t.Errorf("NonZeroCount() = %d, want 2", m.NonZeroCount())
	}
}

func TestBuildColumnSelectors(t *testing.T) {
	rows := []Record{
		{"iso": "usa", "hs92": "0101", "export_usd": "12.5"},
	}
	cols := Columns{Country: "iso", Product: "hs92", Value: "export_usd"}

	m := mustMatrix(t, Table{Rows: rows, Columns: cols})
	if v, _ := m.Value("usa", "0101"); v != 12.5 {
		t.Errorf("string value column not parsed: got %v, want 12.5", v)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		code errors.Code
	}{
		{
			name: "nil source",
			src:  nil,
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "empty records",
			src:  Table{Rows: nil, Columns: DefaultColumns()},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "missing column",
			src: Table{
				Rows:    []Record{{"country": "deu", "value": 1.0}},
				Columns: DefaultColumns(),
			},
			code: errors.ErrCodeInvalidColumn,
		},
		{
			name: "non-numeric value",
			src: Table{
				Rows:    []Record{{"country": "deu", "product": "cars", "value": "lots"}},
				Columns: DefaultColumns(),
			},
			code: errors.ErrCodeInvalidValue,
		},
		{
			name: "negative value",
			src: Table{
				Rows:    []Record{{"country": "deu", "product": "cars", "value": -3.0}},
				Columns: DefaultColumns(),
			},
			code: errors.ErrCodeInvalidValue,
		},
		{
			name: "ragged grid",
			src: Grid{
				Countries: []string{"a", "b"},
				Products:  []string{"x", "y"},
				Values:    [][]float64{{1, 2}, {3}},
			},
			code: errors.ErrCodeInvalidShape,
		},
		{
			name: "grid row count mismatch",
			src: Grid{
				Countries: []string{"a", "b"},
				Products:  []string{"x"},
				Values:    [][]float64{{1}},
			},
			code: errors.ErrCodeInvalidShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.src)
			if err == nil {
				t.Fatal("Build() expected error, got nil")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Build() error code = %v, want %v (err: %v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestBuildIdempotent(t *testing.T) {
	// Feeding a built matrix back through Build yields the same matrix.
	m := mustMatrix(t, Grid{
		Countries: []string{"a", "b"},
		Products:  []string{"x", "y"},
		Values:    [][]float64{{10, 0}, {0, 10}},
	})

	again := mustMatrix(t, m)
	if again != m {
		t.Error("Build(*Matrix) should be the identity")
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := NewBuilder(nil, []string{"x"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty countries: code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
	if _, err := NewBuilder([]string{"a", "a"}, []string{"x"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("duplicate labels: code = %v, want INVALID_INPUT", errors.GetCode(err))
	}

	b, err := NewBuilder([]string{"a"}, []string{"x"})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	b.Set(0, 0, math.NaN())
	if _, err := b.Build(); !errors.Is(err, errors.ErrCodeInvalidValue) {
		t.Errorf("NaN cell: code = %v, want INVALID_VALUE", errors.GetCode(err))
	}
}

func TestBuilderSetLabels(t *testing.T) {
	b, err := NewBuilder([]string{"a", "b"}, []string{"x", "y"})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	if err := b.SetLabels("b", "x", 3); err != nil {
		t.Fatalf("SetLabels() error = %v", err)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, _ := m.Value("b", "x"); got != 3 {
		t.Errorf("Value(b, x) = %v, want 3", got)
	}

	if err := b.SetLabels("zz", "x", 1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown country: code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
	if err := b.SetLabels("a", "zz", 1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown product: code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
}

func TestRowAndColSums(t *testing.T) {
	m := mustMatrix(t, Grid{
		Countries: []string{"a", "b"},
		Products:  []string{"x", "y", "z"},
		Values: [][]float64{
			{1, 2, 3},
			{4, 0, 6},
		},
	})

	if got := m.RowSum(0); got != 6 {
		t.Errorf("RowSum(0) = %v, want 6", got)
	}
	if got := m.RowSum(1); got != 10 {
		t.Errorf("RowSum(1) = %v, want 10", got)
	}
	if got := m.ColSum(2); got != 9 {
		t.Errorf("ColSum(2) = %v, want 9", got)
	}
	if got := m.Total(); got != 16 {
		t.Errorf("Total() = %v, want 16", got)
	}
}

func TestDense(t *testing.T) {
	m := mustMatrix(t, Grid{
		Countries: []string{"a", "b"},
		Products:  []string{"x", "y"},
		Values:    [][]float64{{1, 0}, {0, 2}},
	})

	d := m.Dense()
	r, c := d.Dims()
	if r != 2 || c != 2 {
		t.Fatalf("Dense().Dims() = %d×%d, want 2×2", r, c)
	}
	if d.At(0, 0) != 1 || d.At(1, 1) != 2 || d.At(0, 1) != 0 {
		t.Errorf("Dense() values wrong: %v", d.RawMatrix().Data)
	}

	// Mutating the dense copy must not leak into the matrix.
	d.Set(0, 1, 99)
	if m.At(0, 1) != 0 {
		t.Error("Dense() must return an independent copy")
	}
}

func TestNonZerosDeterministicOrder(t *testing.T) {
	m := mustMatrix(t, Grid{
		Countries: []string{"a", "b"},
		Products:  []string{"x", "y"},
		Values:    [][]float64{{1, 2}, {3, 4}},
	})

	var got []int
	m.NonZeros(func(i, j int, v float64) {
		got = append(got, i*2+j)
	})
	for n := 1; n < len(got); n++ {
		if got[n] <= got[n-1] {
			t.Fatalf("NonZeros() not in row-major order: %v", got)
		}
	}
}

func TestMatrixJSONRoundTrip(t *testing.T) {
	m := mustMatrix(t, Grid{
		Countries: []string{"arg", "deu"},
		Products:  []string{"beef", "cars"},
		Values:    [][]float64{{7, 0}, {0, 15}},
	})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Matrix
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if !m.SameShape(&back) {
		t.Fatal("round-trip changed labels")
	}
	if v, _ := back.Value("deu", "cars"); v != 15 {
		t.Errorf("round-trip value = %v, want 15", v)
	}
	if back.Total() != m.Total() {
		t.Errorf("round-trip total = %v, want %v", back.Total(), m.Total())
	}

	// Deterministic encoding: marshal twice, identical bytes.
	data2, _ := json.Marshal(m)
	if string(data) != string(data2) {
		t.Error("MarshalJSON is not deterministic")
	}
}
