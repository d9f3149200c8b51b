// Package complexity computes country and product complexity indices from a
// specialization matrix.
//
// # Methods
//
// Three interchangeable methods are provided, selected through [Options]:
//
//   - [MethodFitness] (default): a normalized fixed-point iteration of
//     mutually-reinforcing country fitness and product quality scores.
//   - [MethodReflections]: the iterative eigenvector method on row-normalized
//     co-occurrence matrices, classically known as the method of reflections.
//   - [MethodEigenvalues]: direct eigendecomposition of the same matrices,
//     taking the eigenvector of the second-largest eigenvalue.
//
// All methods return z-scored index vectors, so results are comparable across
// methods up to sign. Eigenvector sign is inherently arbitrary; the
// eigenvalues method resolves it by correlating against the reflections
// result, which serves as the canonical orientation.
//
// Inputs are ideally binary specialization matrices (see the balassa package
// with discrete output), but continuous matrices are accepted.
package complexity

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Method selects the complexity algorithm.
type Method string

// Supported methods.
const (
	MethodFitness     Method = "fitness"
	MethodReflections Method = "reflections"
	MethodEigenvalues Method = "eigenvalues"
)

// Default iteration budgets and tolerance.
const (
	// DefaultFitnessIterations bounds the fitness fixed-point iteration.
	DefaultFitnessIterations = 1000
	// DefaultReflectionsIterations is the fixed sweep count for reflections.
	DefaultReflectionsIterations = 20
	// DefaultTolerance is the fitness convergence threshold on the largest
	// per-entry change across one sweep.
	DefaultTolerance = 1e-10
)

// ValidMethods is the set of recognized method names.
var ValidMethods = map[Method]bool{
	MethodFitness:     true,
	MethodReflections: true,
	MethodEigenvalues: true,
}

// Options configures Measures.
type Options struct {
	// Method selects the algorithm; empty means MethodFitness.
	Method Method
	// Iterations is the iteration budget (fitness) or fixed sweep count
	// (reflections). Zero means the per-method default.
	Iterations int
	// Tolerance is the fitness convergence threshold. Zero means
	// DefaultTolerance. Ignored by the other methods.
	Tolerance float64
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{Method: MethodFitness}
}

// Result holds z-scored complexity indices aligned with the input labels.
type Result struct {
	Countries []string `json:"countries" bson:"countries"`
	Products  []string `json:"products" bson:"products"`

	// CountryIndex is the z-scored country complexity vector
	// (one value per country, higher = more complex).
	CountryIndex []float64 `json:"country_index" bson:"country_index"`
	// ProductIndex is the z-scored product complexity vector.
	ProductIndex []float64 `json:"product_index" bson:"product_index"`

	// Method records which algorithm produced the result.
	Method Method `json:"method" bson:"method"`
	// Iterations is the number of sweeps actually run (iterative methods only).
	Iterations int `json:"iterations,omitempty" bson:"iterations,omitempty"`
}

// CountryValue returns the index for a country label and whether it exists.
func (r *Result) CountryValue(country string) (float64, bool) {
	for i, c := range r.Countries {
		if c == country {
			return r.CountryIndex[i], true
		}
	}
	return 0, false
}

// ProductValue returns the index for a product label and whether it exists.
func (r *Result) ProductValue(product string) (float64, bool) {
	for j, p := range r.Products {
		if p == product {
			return r.ProductIndex[j], true
		}
	}
	return 0, false
}

// Measures computes complexity indices for the specialization matrix m.
//
// Validation happens eagerly: a nil matrix, unknown method, or negative
// iteration budget fails before any computation. The eigenvector methods need
// at least two countries and two products; fitness works on any shape.
// Returns a CONVERGENCE error when the fitness iteration does not stabilize
// within its budget.
func Measures(m *economy.Matrix, opts Options) (*Result, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil matrix")
	}
	if opts.Method == "" {
		opts.Method = MethodFitness
	}
	if !ValidMethods[opts.Method] {
		return nil, errors.New(errors.ErrCodeInvalidMethod,
			"unknown method %q (must be one of: fitness, reflections, eigenvalues)", opts.Method)
	}
	if opts.Iterations < 0 {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "iterations must be non-negative, got %d", opts.Iterations)
	}
	if opts.Tolerance < 0 || math.IsNaN(opts.Tolerance) {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "tolerance must be non-negative, got %v", opts.Tolerance)
	}

	countries, products := m.Dims()
	if opts.Method != MethodFitness && (countries < 2 || products < 2) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"method %q needs at least 2 countries and 2 products, got %d×%d", opts.Method, countries, products)
	}

	switch opts.Method {
	case MethodReflections:
		return reflections(m, opts)
	case MethodEigenvalues:
		return eigenvalues(m, opts)
	default:
		return fitness(m, opts)
	}
}

// zscore standardizes v in place to zero mean and unit sample variance.
// A constant vector (zero variance) is mapped to all zeros rather than NaN.
func zscore(v []float64) {
	mean, std := stat.MeanStdDev(v, nil)
	if std == 0 || math.IsNaN(std) {
		for i := range v {
			v[i] = 0
		}
		return
	}
	for i := range v {
		v[i] = (v[i] - mean) / std
	}
}

// correlation returns the Pearson correlation of x and y, or 0 when either
// vector is constant.
func correlation(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// flipIfAnticorrelated negates v in place when it correlates negatively with
// the reference vector. Eigenvector sign is arbitrary; the reference defines
// the canonical orientation.
func flipIfAnticorrelated(v, reference []float64) {
	if correlation(v, reference) < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}
