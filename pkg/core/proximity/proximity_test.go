package proximity

import (
	"testing"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

func grid(t *testing.T, countries, products []string, values [][]float64) *economy.Matrix {
	t.Helper()
	m, err := economy.Build(economy.Grid{Countries: countries, Products: products, Values: values})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestProximitySymmetricAndBounded(t *testing.T) {
	m := grid(t, []string{"c1", "c2", "c3"}, []string{"p1", "p2", "p3"}, [][]float64{
		{1, 1, 0},
		{1, 0, 1},
		{0, 1, 1},
	})

	res, err := Proximity(m)
	if err != nil {
		t.Fatalf("Proximity() error = %v", err)
	}

	for name, prox := range map[string]*economy.Matrix{"country": res.Country, "product": res.Product} {
		rows, cols := prox.Dims()
		if rows != cols {
			t.Fatalf("%s proximity not square: %d×%d", name, rows, cols)
		}
		for i := 0; i < rows; i++ {
			if d := prox.At(i, i); d != 0 {
				t.Errorf("%s proximity diagonal (%d,%d) = %v, want excluded (0)", name, i, i, d)
			}
			for j := 0; j < cols; j++ {
				if prox.At(i, j) != prox.At(j, i) {
					t.Errorf("%s proximity not symmetric at (%d,%d)", name, i, j)
				}
				if v := prox.At(i, j); v < 0 || v > 1 {
					t.Errorf("%s proximity (%d,%d) = %v, want within [0,1]", name, i, j, v)
				}
			}
		}
	}
}

func TestProximityIdenticalVectorsScoreOne(t *testing.T) {
	// Two countries with identical specialization are maximally proximate.
	m := grid(t, []string{"c1", "c2"}, []string{"p1", "p2"}, [][]float64{
		{1, 1},
		{1, 1},
	})

	res, err := Proximity(m)
	if err != nil {
		t.Fatalf("Proximity() error = %v", err)
	}
	if got := res.Country.At(0, 1); got != 1 {
		t.Errorf("proximity of identical countries = %v, want 1", got)
	}
}

func TestProximityDisjointVectorsScoreZero(t *testing.T) {
	m := grid(t, []string{"c1", "c2"}, []string{"p1", "p2"}, [][]float64{
		{1, 0},
		{0, 1},
	})

	res, err := Proximity(m)
	if err != nil {
		t.Fatalf("Proximity() error = %v", err)
	}
	if got := res.Country.At(0, 1); got != 0 {
		t.Errorf("proximity of disjoint countries = %v, want 0", got)
	}
}

func TestProximityNormalizedByMoreDiversified(t *testing.T) {
	// c1 exports three products, c2 only one of them: overlap 1, max total 3.
	m := grid(t, []string{"c1", "c2"}, []string{"p1", "p2", "p3"}, [][]float64{
		{1, 1, 1},
		{1, 0, 0},
	})

	res, err := Proximity(m)
	if err != nil {
		t.Fatalf("Proximity() error = %v", err)
	}
	want := 1.0 / 3.0
	if got := res.Country.At(0, 1); got != want {
		t.Errorf("proximity = %v, want %v", got, want)
	}
}

func TestProximityAllZeroRowIsZeroNotNaN(t *testing.T) {
	m := grid(t, []string{"c1", "c2", "c3"}, []string{"p1", "p2"}, [][]float64{
		{1, 1},
		{0, 0}, // isolated country
		{0, 0}, // another isolated country: max(0,0) denominator
	})

	res, err := Proximity(m)
	if err != nil {
		t.Fatalf("Proximity() error = %v", err)
	}
	if got := res.Country.At(0, 1); got != 0 {
		t.Errorf("proximity to isolated country = %v, want 0", got)
	}
	if got := res.Country.At(1, 2); got != 0 {
		t.Errorf("proximity between isolated countries = %v, want 0", got)
	}
}

func TestProximityLabels(t *testing.T) {
	m := grid(t, []string{"arg", "bra"}, []string{"beef", "soy"}, [][]float64{
		{1, 1},
		{0, 1},
	})

	res, err := Proximity(m)
	if err != nil {
		t.Fatalf("Proximity() error = %v", err)
	}

	cc := res.Country.Countries()
	if len(cc) != 2 || cc[0] != "arg" || cc[1] != "bra" {
		t.Errorf("country proximity labels = %v", cc)
	}
	pp := res.Product.Countries() // square matrix: rows are products here
	if len(pp) != 2 || pp[0] != "beef" || pp[1] != "soy" {
		t.Errorf("product proximity labels = %v", pp)
	}
}

func TestProximityNilInput(t *testing.T) {
	if _, err := Proximity(nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
}
