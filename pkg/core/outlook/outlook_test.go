package outlook

import (
	"math"
	"testing"

	"github.com/tradelens/ecomplexity/pkg/core/complexity"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

func buildMatrix(t *testing.T, rows, cols []string, cells map[[2]string]float64) *economy.Matrix {
	t.Helper()
	b, err := economy.NewBuilder(rows, cols)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for k, v := range cells {
		if err := b.SetLabels(k[0], k[1], v); err != nil {
			t.Fatalf("SetLabels(%s, %s): %v", k[0], k[1], err)
		}
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

// fixture: two countries over three products. c1 exports p1 and p2, c2 only p3.
func fixture(t *testing.T) (*economy.Matrix, *economy.Matrix, *complexity.Result) {
	t.Helper()
	spec := buildMatrix(t, []string{"c1", "c2"}, []string{"p1", "p2", "p3"}, map[[2]string]float64{
		{"c1", "p1"}: 1,
		{"c1", "p2"}: 1,
		{"c2", "p3"}: 1,
	})
	prox := buildMatrix(t, []string{"p1", "p2", "p3"}, []string{"p1", "p2", "p3"}, map[[2]string]float64{
		{"p1", "p2"}: 0.8, {"p2", "p1"}: 0.8,
		{"p2", "p3"}: 0.4, {"p3", "p2"}: 0.4,
		{"p1", "p3"}: 0.1, {"p3", "p1"}: 0.1,
	})
	scores := &complexity.Result{
		Countries:    []string{"c1", "c2"},
		Products:     []string{"p1", "p2", "p3"},
		CountryIndex: []float64{1, -1},
		ProductIndex: []float64{0.5, 0.2, -0.7},
		Method:       complexity.MethodFitness,
	}
	return spec, prox, scores
}

func TestMeasuresDensity(t *testing.T) {
	spec, prox, scores := fixture(t)
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}

	// c1 is specialized in p1 and p2. Density of p3 for c1:
	// (phi(p3,p1) + phi(p3,p2)) / (phi(p3,p1) + phi(p3,p2)) = 1.
	if got := res.Density.Value("c1", "p3"); math.Abs(got-1) > 1e-12 {
		t.Errorf("Density[c1,p3] = %v, want 1", got)
	}
	// Density of p1 for c2: phi(p1,p3) / (phi(p1,p2)+phi(p1,p3)) = 0.1/0.9.
	if got, want := res.Density.Value("c2", "p1"), 0.1/0.9; math.Abs(got-want) > 1e-12 {
		t.Errorf("Density[c2,p1] = %v, want %v", got, want)
	}
	for _, c := range res.Density.Countries() {
		for _, p := range res.Density.Products() {
			v := res.Density.Value(c, p)
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Errorf("Density[%s,%s] = %v outside [0,1]", c, p, v)
			}
		}
	}
}

func TestMeasuresGain(t *testing.T) {
	spec, prox, scores := fixture(t)
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}

	// Gain is zero for products a country already exports.
	if got := res.Gain.Value("c1", "p1"); got != 0 {
		t.Errorf("Gain[c1,p1] = %v, want 0 for a realized product", got)
	}
	if got := res.Gain.Value("c2", "p3"); got != 0 {
		t.Errorf("Gain[c2,p3] = %v, want 0 for a realized product", got)
	}
	// c1 does not export p3, and p3 is the only other unrealized product for
	// c1, so gain sums nothing: every neighbor of p3 is already realized.
	if got := res.Gain.Value("c1", "p3"); got != 0 {
		t.Errorf("Gain[c1,p3] = %v, want 0", got)
	}
	// c2 only exports p3; gain for p1 sums over unrealized p2:
	// phi(p1,p2) * pci(p2) = 0.8 * 0.2.
	if got, want := res.Gain.Value("c2", "p1"), 0.8*0.2; math.Abs(got-want) > 1e-12 {
		t.Errorf("Gain[c2,p1] = %v, want %v", got, want)
	}
}

func TestMeasuresGainCanBeNegative(t *testing.T) {
	spec, prox, scores := fixture(t)
	scores.ProductIndex = []float64{-1, -1, -1}
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}
	if got := res.Gain.Value("c2", "p1"); got >= 0 {
		t.Errorf("Gain[c2,p1] = %v, want negative with all-negative complexity", got)
	}
}

func TestMeasuresIndex(t *testing.T) {
	spec, prox, scores := fixture(t)
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}
	for _, c := range []string{"c1", "c2"} {
		if _, ok := res.Index[c]; !ok {
			t.Errorf("Index missing country %s", c)
		}
	}
	// Weighted average of gains must lie within the gain range per country.
	for _, c := range []string{"c1", "c2"} {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range res.Gain.Products() {
			v := res.Gain.Value(c, p)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		if idx := res.Index[c]; idx < lo-1e-12 || idx > hi+1e-12 {
			t.Errorf("Index[%s] = %v outside gain range [%v, %v]", c, idx, lo, hi)
		}
	}
}

func TestMeasuresFullySpecializedCountry(t *testing.T) {
	// A country exporting everything has zero gain everywhere and a zero index.
	spec := buildMatrix(t, []string{"c1"}, []string{"p1", "p2"}, map[[2]string]float64{
		{"c1", "p1"}: 1,
		{"c1", "p2"}: 1,
	})
	prox := buildMatrix(t, []string{"p1", "p2"}, []string{"p1", "p2"}, map[[2]string]float64{
		{"p1", "p2"}: 0.5, {"p2", "p1"}: 0.5,
	})
	scores := &complexity.Result{
		Countries: []string{"c1"}, Products: []string{"p1", "p2"},
		CountryIndex: []float64{0}, ProductIndex: []float64{1, -1},
	}
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}
	if got := res.Index["c1"]; got != 0 {
		t.Errorf("Index[c1] = %v, want 0", got)
	}
}

func TestMeasuresIsolatedProductNoNaN(t *testing.T) {
	// p3 has no proximity to anything: density must be 0, not NaN.
	spec := buildMatrix(t, []string{"c1"}, []string{"p1", "p2", "p3"}, map[[2]string]float64{
		{"c1", "p1"}: 1,
	})
	prox := buildMatrix(t, []string{"p1", "p2", "p3"}, []string{"p1", "p2", "p3"}, map[[2]string]float64{
		{"p1", "p2"}: 0.6, {"p2", "p1"}: 0.6,
	})
	scores := &complexity.Result{
		Countries: []string{"c1"}, Products: []string{"p1", "p2", "p3"},
		CountryIndex: []float64{0}, ProductIndex: []float64{0.1, 0.2, 0.3},
	}
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}
	if got := res.Density.Value("c1", "p3"); got != 0 || math.IsNaN(got) {
		t.Errorf("Density[c1,p3] = %v, want 0", got)
	}
	if idx := res.Index["c1"]; math.IsNaN(idx) {
		t.Errorf("Index[c1] = NaN")
	}
}

func TestMeasuresValidation(t *testing.T) {
	spec, prox, scores := fixture(t)
	badProx := buildMatrix(t, []string{"p1", "p2"}, []string{"p1", "p2"}, nil)

	tests := []struct {
		name   string
		spec   *economy.Matrix
		prox   *economy.Matrix
		scores *complexity.Result
		code   errors.Code
	}{
		{"nil specialization", nil, prox, scores, errors.ErrCodeInvalidInput},
		{"nil proximity", spec, nil, scores, errors.ErrCodeInvalidInput},
		{"nil scores", spec, prox, nil, errors.ErrCodeInvalidInput},
		{"proximity shape mismatch", spec, badProx, scores, errors.ErrCodeInvalidShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Measures(tt.spec, tt.prox, tt.scores)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestIndicatorUnknownLabels(t *testing.T) {
	spec, prox, scores := fixture(t)
	res, err := Measures(spec, prox, scores)
	if err != nil {
		t.Fatalf("Measures: %v", err)
	}
	if got := res.Density.Value("nope", "p1"); got != 0 {
		t.Errorf("Value(nope, p1) = %v, want 0", got)
	}
	if got := res.Density.Value("c1", "nope"); got != 0 {
		t.Errorf("Value(c1, nope) = %v, want 0", got)
	}
}
