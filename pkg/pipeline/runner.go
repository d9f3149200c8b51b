package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tradelens/ecomplexity/pkg/cache"
	"github.com/tradelens/ecomplexity/pkg/core/balassa"
	"github.com/tradelens/ecomplexity/pkg/core/complexity"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/core/outlook"
	"github.com/tradelens/ecomplexity/pkg/core/projection"
	"github.com/tradelens/ecomplexity/pkg/core/proximity"
	"github.com/tradelens/ecomplexity/pkg/graphio"
	"github.com/tradelens/ecomplexity/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → balassa → complexity → proximity →
// projection → outlook pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{RunID: uuid.NewString()}
	runStart := time.Now()

	// Stage 1: Build
	buildStart := time.Now()
	m, matrixHit, err := r.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	rows, cols := m.Dims()
	observability.Pipeline().OnRunStart(ctx, result.RunID, rows, cols)
	result.Matrix = m
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.CountryCount = rows
	result.Stats.ProductCount = cols
	result.CacheInfo.MatrixHit = matrixHit

	// Compute matrix hash for cache keys and API responses
	if data, err := json.Marshal(m); err == nil {
		result.MatrixHash = cache.Hash(data)
	}

	r.Logger.Info("built trade matrix",
		"countries", rows,
		"products", cols,
		"entries", m.NonZeroCount(),
		"duration", result.Stats.BuildTime)

	// Stage 2: Balassa
	balassaStart := time.Now()
	spec, balassaHit, err := r.BalassaWithCacheInfo(ctx, m, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), err)
		return nil, fmt.Errorf("balassa: %w", err)
	}
	result.Specialization = spec
	result.Stats.BalassaTime = time.Since(balassaStart)
	result.CacheInfo.BalassaHit = balassaHit

	r.Logger.Info("computed specialization matrix",
		"entries", spec.NonZeroCount(),
		"duration", result.Stats.BalassaTime)

	// Stage 3: Complexity
	complexityStart := time.Now()
	cx, complexityHit, err := r.ComplexityWithCacheInfo(ctx, spec, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), err)
		return nil, fmt.Errorf("complexity: %w", err)
	}
	result.Complexity = cx
	result.Stats.ComplexityTime = time.Since(complexityStart)
	result.CacheInfo.ComplexityHit = complexityHit

	r.Logger.Info("computed complexity indices",
		"method", cx.Method,
		"iterations", cx.Iterations,
		"duration", result.Stats.ComplexityTime)

	// Stage 4: Proximity
	proximityStart := time.Now()
	prox, proximityHit, err := r.ProximityWithCacheInfo(ctx, spec, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), err)
		return nil, fmt.Errorf("proximity: %w", err)
	}
	result.Proximity = prox
	result.Stats.ProximityTime = time.Since(proximityStart)
	result.CacheInfo.ProximityHit = proximityHit

	r.Logger.Info("computed proximity matrices",
		"country_pairs", prox.Country.NonZeroCount(),
		"product_pairs", prox.Product.NonZeroCount(),
		"duration", result.Stats.ProximityTime)

	// Stage 5: Projection
	projectionStart := time.Now()
	countryNet, countryHit, err := r.ProjectWithCacheInfo(ctx, prox.Country, AxisCountry, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), err)
		return nil, fmt.Errorf("projection (country): %w", err)
	}
	productNet, productHit, err := r.ProjectWithCacheInfo(ctx, prox.Product, AxisProduct, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), err)
		return nil, fmt.Errorf("projection (product): %w", err)
	}
	result.CountryNetwork = countryNet
	result.ProductNetwork = productNet
	result.Stats.ProjectionTime = time.Since(projectionStart)
	result.CacheInfo.ProjectionHit = countryHit && productHit

	r.Logger.Info("projected networks",
		"country_edges", countryNet.Size(),
		"product_edges", productNet.Size(),
		"duration", result.Stats.ProjectionTime)

	// Stage 6: Outlook
	outlookStart := time.Now()
	ol, outlookHit, err := r.OutlookWithCacheInfo(ctx, spec, prox.Product, cx, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), err)
		return nil, fmt.Errorf("outlook: %w", err)
	}
	result.Outlook = ol
	result.Stats.OutlookTime = time.Since(outlookStart)
	result.CacheInfo.OutlookHit = outlookHit

	r.Logger.Info("computed outlook indicators",
		"duration", result.Stats.OutlookTime)

	observability.Pipeline().OnRunComplete(ctx, result.RunID, time.Since(runStart), nil)
	return result, nil
}

// BuildWithCacheInfo aggregates rows into a trade matrix with caching and
// returns cache hit info.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, opts Options) (*economy.Matrix, bool, error) {
	if err := opts.ValidateForBuild(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key from the raw input
	inputData, err := json.Marshal(struct {
		Rows    []economy.Record `json:"rows"`
		Columns economy.Columns  `json:"columns"`
	}{opts.Rows, opts.Columns})
	if err != nil {
		return nil, false, fmt.Errorf("serialize input for cache key: %w", err)
	}
	cacheKey := r.Keyer.MatrixKey(cache.Hash(inputData))

	if m, ok := r.getMatrix(ctx, cacheKey, "matrix", opts.Refresh); ok {
		return m, true, nil
	}

	m, err := stageHooks(ctx, "build", func() (*economy.Matrix, error) {
		return economy.FromRecords(opts.Rows, opts.Columns)
	})
	if err != nil {
		return nil, false, err
	}

	r.setJSON(ctx, cacheKey, "matrix", m, cache.TTLMatrix, opts.Refresh)
	return m, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, opts Options) (*economy.Matrix, error) {
	m, _, err := r.BuildWithCacheInfo(ctx, opts)
	return m, err
}

// BalassaWithCacheInfo computes the specialization matrix with caching and
// returns cache hit info.
func (r *Runner) BalassaWithCacheInfo(ctx context.Context, m *economy.Matrix, opts Options) (*economy.Matrix, bool, error) {
	r.applyLogger(&opts)

	matrixHash, err := hashJSON(m)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.BalassaKey(matrixHash, opts.BalassaKeyOpts())

	if spec, ok := r.getMatrix(ctx, cacheKey, "balassa", opts.Refresh); ok {
		return spec, true, nil
	}

	spec, err := stageHooks(ctx, "balassa", func() (*economy.Matrix, error) {
		return balassa.Index(m, opts.BalassaOptions())
	})
	if err != nil {
		return nil, false, err
	}

	r.setJSON(ctx, cacheKey, "balassa", spec, cache.TTLBalassa, opts.Refresh)
	return spec, false, nil
}

// Balassa is a convenience wrapper that calls BalassaWithCacheInfo and discards the cache hit info.
func (r *Runner) Balassa(ctx context.Context, m *economy.Matrix, opts Options) (*economy.Matrix, error) {
	spec, _, err := r.BalassaWithCacheInfo(ctx, m, opts)
	return spec, err
}

// ComplexityWithCacheInfo computes complexity indices with caching and
// returns cache hit info.
func (r *Runner) ComplexityWithCacheInfo(ctx context.Context, spec *economy.Matrix, opts Options) (*complexity.Result, bool, error) {
	r.applyLogger(&opts)

	specHash, err := hashJSON(spec)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.ComplexityKey(specHash, opts.ComplexityKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.cacheGet(ctx, cacheKey); err == nil && hit {
			var cached complexity.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "complexity")
				return &cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "complexity")
	}

	cx, err := stageHooks(ctx, "complexity", func() (*complexity.Result, error) {
		return complexity.Measures(spec, opts.ComplexityOptions())
	})
	if err != nil {
		return nil, false, err
	}

	r.setJSON(ctx, cacheKey, "complexity", cx, cache.TTLComplexity, opts.Refresh)
	return cx, false, nil
}

// Complexity is a convenience wrapper that calls ComplexityWithCacheInfo and discards the cache hit info.
func (r *Runner) Complexity(ctx context.Context, spec *economy.Matrix, opts Options) (*complexity.Result, error) {
	cx, _, err := r.ComplexityWithCacheInfo(ctx, spec, opts)
	return cx, err
}

// ProximityWithCacheInfo computes both proximity matrices with caching and
// returns cache hit info.
func (r *Runner) ProximityWithCacheInfo(ctx context.Context, spec *economy.Matrix, opts Options) (*proximity.Result, bool, error) {
	r.applyLogger(&opts)

	specHash, err := hashJSON(spec)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.ProximityKey(specHash)

	if !opts.Refresh {
		if data, hit, err := r.cacheGet(ctx, cacheKey); err == nil && hit {
			var cached proximity.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "proximity")
				return &cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "proximity")
	}

	prox, err := stageHooks(ctx, "proximity", func() (*proximity.Result, error) {
		return proximity.Proximity(spec)
	})
	if err != nil {
		return nil, false, err
	}

	r.setJSON(ctx, cacheKey, "proximity", prox, cache.TTLProximity, opts.Refresh)
	return prox, false, nil
}

// ProximityMatrices is a convenience wrapper that calls ProximityWithCacheInfo and discards the cache hit info.
func (r *Runner) ProximityMatrices(ctx context.Context, spec *economy.Matrix, opts Options) (*proximity.Result, error) {
	prox, _, err := r.ProximityWithCacheInfo(ctx, spec, opts)
	return prox, err
}

// ProjectWithCacheInfo projects one proximity matrix onto a network with
// caching and returns cache hit info. Networks are cached in the graphio
// JSON format.
func (r *Runner) ProjectWithCacheInfo(ctx context.Context, prox *economy.Matrix, axis string, opts Options) (*projection.Network, bool, error) {
	if err := ValidateAxis(axis); err != nil {
		return nil, false, err
	}
	opts.SetProjectionDefaults()
	r.applyLogger(&opts)

	proxHash, err := hashJSON(prox)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.ProjectionKey(proxHash, opts.ProjectionKeyOpts(axis))

	if !opts.Refresh {
		if data, hit, err := r.cacheGet(ctx, cacheKey); err == nil && hit {
			if net, err := graphio.Unmarshal(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "projection")
				return net, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "projection")
	}

	net, err := stageHooks(ctx, "projection", func() (*projection.Network, error) {
		return projection.FromProximity(prox, opts.ProjectionOptions())
	})
	if err != nil {
		return nil, false, err
	}

	if !opts.Refresh {
		if data, err := graphio.Marshal(net); err == nil {
			_ = r.cacheSet(ctx, cacheKey, data, cache.TTLProjection)
			observability.Cache().OnCacheSet(ctx, "projection", len(data))
		}
	}
	return net, false, nil
}

// Project is a convenience wrapper that calls ProjectWithCacheInfo and discards the cache hit info.
func (r *Runner) Project(ctx context.Context, prox *economy.Matrix, axis string, opts Options) (*projection.Network, error) {
	net, _, err := r.ProjectWithCacheInfo(ctx, prox, axis, opts)
	return net, err
}

// OutlookWithCacheInfo computes outlook indicators with caching and returns
// cache hit info.
func (r *Runner) OutlookWithCacheInfo(ctx context.Context, spec, productProx *economy.Matrix, cx *complexity.Result, opts Options) (*outlook.Result, bool, error) {
	r.applyLogger(&opts)

	// The outlook depends on all three upstream results, so the key hashes
	// their hashes.
	specHash, err := hashJSON(spec)
	if err != nil {
		return nil, false, err
	}
	proxHash, err := hashJSON(productProx)
	if err != nil {
		return nil, false, err
	}
	cxHash, err := hashJSON(cx)
	if err != nil {
		return nil, false, err
	}
	combined := cache.Hash([]byte(specHash + proxHash + cxHash))
	cacheKey := r.Keyer.OutlookKey(combined)

	if !opts.Refresh {
		if data, hit, err := r.cacheGet(ctx, cacheKey); err == nil && hit {
			var cached outlook.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "outlook")
				return &cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "outlook")
	}

	ol, err := stageHooks(ctx, "outlook", func() (*outlook.Result, error) {
		return outlook.Measures(spec, productProx, cx)
	})
	if err != nil {
		return nil, false, err
	}

	r.setJSON(ctx, cacheKey, "outlook", ol, cache.TTLOutlook, opts.Refresh)
	return ol, false, nil
}

// Outlook is a convenience wrapper that calls OutlookWithCacheInfo and discards the cache hit info.
func (r *Runner) Outlook(ctx context.Context, spec, productProx *economy.Matrix, cx *complexity.Result, opts Options) (*outlook.Result, error) {
	ol, _, err := r.OutlookWithCacheInfo(ctx, spec, productProx, cx, opts)
	return ol, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

// stageHooks runs fn with observability hooks around it.
func stageHooks[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	observability.Pipeline().OnStageStart(ctx, name)
	start := time.Now()
	out, err := fn()
	observability.Pipeline().OnStageComplete(ctx, name, time.Since(start), err)
	return out, err
}

// cacheGet reads a key, retrying failures the backend marked transient.
func (r *Runner) cacheGet(ctx context.Context, key string) (data []byte, hit bool, err error) {
	err = cache.RetryWithBackoff(ctx, func() error {
		var getErr error
		data, hit, getErr = r.Cache.Get(ctx, key)
		return getErr
	})
	return data, hit, err
}

// cacheSet stores a key, retrying failures the backend marked transient.
func (r *Runner) cacheSet(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return cache.RetryWithBackoff(ctx, func() error {
		return r.Cache.Set(ctx, key, data, ttl)
	})
}

// getMatrix tries to load a cached matrix, reporting hits and misses.
func (r *Runner) getMatrix(ctx context.Context, key, keyType string, refresh bool) (*economy.Matrix, bool) {
	if refresh {
		return nil, false
	}
	if data, hit, err := r.cacheGet(ctx, key); err == nil && hit {
		var m economy.Matrix
		if err := json.Unmarshal(data, &m); err == nil {
			observability.Cache().OnCacheHit(ctx, keyType)
			return &m, true
		}
		// Fall through to recompute on deserialization failure
	}
	observability.Cache().OnCacheMiss(ctx, keyType)
	return nil, false
}

// setJSON stores a JSON-serializable value in the cache, best effort.
func (r *Runner) setJSON(ctx context.Context, key, keyType string, v any, ttl time.Duration, refresh bool) {
	if refresh {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = r.cacheSet(ctx, key, data, ttl)
		observability.Cache().OnCacheSet(ctx, keyType, len(data))
	}
}

// hashJSON hashes the canonical JSON form of v.
func hashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize for cache key: %w", err)
	}
	return cache.Hash(data), nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
