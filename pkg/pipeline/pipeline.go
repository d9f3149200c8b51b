// Package pipeline provides the core computation pipeline for economic
// complexity analysis.
//
// This package implements the complete build → balassa → complexity →
// proximity → projection → outlook pipeline that can be used by CLI and API
// components. By centralizing this logic, we ensure consistent behavior
// across all entry points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of six stages:
//
//  1. Build: Aggregate raw trade records into a country×product matrix
//  2. Balassa: Compute the specialization (revealed comparative advantage) matrix
//  3. Complexity: Compute country and product complexity indices
//  4. Proximity: Compute country and product similarity matrices
//  5. Projection: Project the proximity matrices onto weighted networks
//  6. Outlook: Compute density, gain, and the complexity outlook index
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Rows:   rows,
//	    Method: "fitness",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eci := result.Complexity.CountryIndex
//
// Run individual stages:
//
//	// Build only
//	m, err := runner.Build(ctx, opts)
//
//	// Specialization with an existing matrix
//	spec, err := runner.Balassa(ctx, m, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tradelens/ecomplexity/pkg/cache"
	"github.com/tradelens/ecomplexity/pkg/core/balassa"
	"github.com/tradelens/ecomplexity/pkg/core/complexity"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/core/outlook"
	"github.com/tradelens/ecomplexity/pkg/core/projection"
	"github.com/tradelens/ecomplexity/pkg/core/proximity"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMethod is the default complexity algorithm.
	DefaultMethod = string(complexity.MethodFitness)

	// DefaultCutoff is the default specialization cutoff.
	DefaultCutoff = balassa.DefaultCutoff

	// DefaultSeed is the default random seed for community detection,
	// kept fixed for reproducibility.
	DefaultSeed = uint64(42)
)

// Axis constants for projected networks.
const (
	AxisCountry = "country"
	AxisProduct = "product"
)

// ValidAxes is the set of supported projection axes.
var ValidAxes = map[string]bool{
	AxisCountry: true,
	AxisProduct: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the complexity pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Build options
	Rows    []economy.Record `json:"rows,omitempty"`
	Columns economy.Columns  `json:"columns,omitempty"`

	// Specialization options. The zero value discretizes at the default
	// cutoff; set Continuous to keep raw Balassa ratios.
	Continuous bool    `json:"continuous,omitempty"`
	Cutoff     float64 `json:"cutoff,omitempty"`

	// Complexity options
	Method     string  `json:"method,omitempty"`
	Iterations int     `json:"iterations,omitempty"`
	Tolerance  float64 `json:"tolerance,omitempty"`

	// Projection options
	Threshold float64 `json:"threshold,omitempty"`
	AvgLinks  float64 `json:"avg_links,omitempty"`
	Seed      uint64  `json:"seed,omitempty"`

	// Refresh bypasses the cache and recomputes every stage.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this pipeline execution.
	RunID string

	// Matrix is the aggregated country×product trade matrix.
	Matrix *economy.Matrix

	// MatrixHash is the content hash of the matrix.
	MatrixHash string

	// Specialization is the Balassa matrix.
	Specialization *economy.Matrix

	// Complexity holds the country and product complexity indices.
	Complexity *complexity.Result

	// Proximity holds the country and product similarity matrices.
	Proximity *proximity.Result

	// CountryNetwork and ProductNetwork are the projected proximity networks.
	CountryNetwork *projection.Network
	ProductNetwork *projection.Network

	// Outlook holds density, gain, and the complexity outlook index.
	Outlook *outlook.Result

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	CountryCount   int
	ProductCount   int
	BuildTime      time.Duration
	BalassaTime    time.Duration
	ComplexityTime time.Duration
	ProximityTime  time.Duration
	ProjectionTime time.Duration
	OutlookTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	MatrixHit     bool // Whether the built matrix came from cache
	BalassaHit    bool // Whether the specialization matrix came from cache
	ComplexityHit bool // Whether the complexity result came from cache
	ProximityHit  bool // Whether the proximity matrices came from cache
	ProjectionHit bool // Whether both projected networks came from cache
	OutlookHit    bool // Whether the outlook result came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateAxis checks that a projection axis is valid.
func ValidateAxis(axis string) error {
	if !ValidAxes[axis] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid axis: %q (must be one of: country, product)", axis)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	o.SetBalassaDefaults()
	o.SetComplexityDefaults()
	o.SetProjectionDefaults()
	o.validated = true
	return nil
}

// ValidateForBuild checks required fields for matrix building.
func (o *Options) ValidateForBuild() error {
	if len(o.Rows) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "rows are required")
	}
	if o.Columns == (economy.Columns{}) {
		o.Columns = economy.DefaultColumns()
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetBalassaDefaults sets default values for the specialization stage.
func (o *Options) SetBalassaDefaults() {
	if o.Cutoff == 0 {
		o.Cutoff = DefaultCutoff
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetComplexityDefaults sets default values for the complexity stage.
func (o *Options) SetComplexityDefaults() {
	if o.Method == "" {
		o.Method = DefaultMethod
	}
	if o.Iterations == 0 {
		switch complexity.Method(o.Method) {
		case complexity.MethodReflections:
			o.Iterations = complexity.DefaultReflectionsIterations
		default:
			o.Iterations = complexity.DefaultFitnessIterations
		}
	}
	if o.Tolerance == 0 {
		o.Tolerance = complexity.DefaultTolerance
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetProjectionDefaults sets default values for network projection.
func (o *Options) SetProjectionDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// BalassaOptions converts pipeline options to the specialization stage options.
func (o *Options) BalassaOptions() balassa.Options {
	o.SetBalassaDefaults()
	return balassa.Options{
		Discrete: !o.Continuous,
		Cutoff:   o.Cutoff,
	}
}

// ComplexityOptions converts pipeline options to the complexity stage options.
func (o *Options) ComplexityOptions() complexity.Options {
	o.SetComplexityDefaults()
	return complexity.Options{
		Method:     complexity.Method(o.Method),
		Iterations: o.Iterations,
		Tolerance:  o.Tolerance,
	}
}

// ProjectionOptions converts pipeline options to the projection stage options.
func (o *Options) ProjectionOptions() projection.Options {
	return projection.Options{
		Threshold: o.Threshold,
		AvgLinks:  o.AvgLinks,
	}
}

// BalassaKeyOpts returns cache key options for the specialization stage.
func (o *Options) BalassaKeyOpts() cache.BalassaKeyOpts {
	o.SetBalassaDefaults()
	return cache.BalassaKeyOpts{
		Discrete: !o.Continuous,
		Cutoff:   o.Cutoff,
	}
}

// ComplexityKeyOpts returns cache key options for the complexity stage.
func (o *Options) ComplexityKeyOpts() cache.ComplexityKeyOpts {
	o.SetComplexityDefaults()
	return cache.ComplexityKeyOpts{
		Method:     o.Method,
		Iterations: o.Iterations,
		Tolerance:  o.Tolerance,
	}
}

// ProjectionKeyOpts returns cache key options for one projected network.
func (o *Options) ProjectionKeyOpts(axis string) cache.ProjectionKeyOpts {
	return cache.ProjectionKeyOpts{
		Axis:      axis,
		Threshold: o.Threshold,
		AvgLinks:  o.AvgLinks,
	}
}
