package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tradelens/ecomplexity/pkg/cache"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/dataset"
	"github.com/tradelens/ecomplexity/pkg/errors"
	"github.com/tradelens/ecomplexity/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "ecomplexity"

// =============================================================================
// Input Handling
// =============================================================================

// inputOpts holds the flags shared by every command that reads a dataset.
type inputOpts struct {
	config     string // config file path
	countryCol string // country column name override
	productCol string // product column name override
	valueCol   string // value column name override
	noCache    bool   // disable result caching entirely
	refresh    bool   // bypass cached results, recompute every stage
}

// addFlags registers the shared dataset flags on cmd.
func (o *inputOpts) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.config, "config", "c", dataset.DefaultConfigFile, "config file")
	cmd.Flags().StringVar(&o.countryCol, "country-col", "", "country column name")
	cmd.Flags().StringVar(&o.productCol, "product-col", "", "product column name")
	cmd.Flags().StringVar(&o.valueCol, "value-col", "", "value column name")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable result caching")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "bypass cached results")
}

// load reads the config file (if present) and the dataset rows.
// The positional argument takes precedence over the configured input path.
func (o *inputOpts) load(arg string) (*dataset.Config, []economy.Record, economy.Columns, error) {
	cfg, err := dataset.LoadConfigIfPresent(o.config)
	if err != nil {
		return nil, nil, economy.Columns{}, err
	}

	path := arg
	if path == "" {
		path = cfg.Input.Path
	}
	if path == "" {
		return nil, nil, economy.Columns{}, errors.New(errors.ErrCodeInvalidInput,
			"no input file: pass a file argument or set input.path in %s", o.config)
	}

	cols := o.columns(cfg)
	rows, err := dataset.ReadFile(path, cols)
	if err != nil {
		return nil, nil, economy.Columns{}, err
	}
	return cfg, rows, cols, nil
}

// columns resolves the column names: flag overrides config overrides default.
func (o *inputOpts) columns(cfg *dataset.Config) economy.Columns {
	cols := economy.DefaultColumns()
	if cfg.Input.CountryColumn != "" {
		cols.Country = cfg.Input.CountryColumn
	}
	if cfg.Input.ProductColumn != "" {
		cols.Product = cfg.Input.ProductColumn
	}
	if cfg.Input.ValueColumn != "" {
		cols.Value = cfg.Input.ValueColumn
	}
	if o.countryCol != "" {
		cols.Country = o.countryCol
	}
	if o.productCol != "" {
		cols.Product = o.productCol
	}
	if o.valueCol != "" {
		cols.Value = o.valueCol
	}
	return cols
}

// =============================================================================
// Tuning Options
// =============================================================================

// tuningOpts holds the per-stage tuning flags. Commands register only the
// subsets they use; options resolves flag > config > pipeline default.
type tuningOpts struct {
	continuous bool
	cutoff     float64
	method     string
	iterations int
	tolerance  float64
	threshold  float64
	avgLinks   float64
	seed       uint64
}

// addBalassaFlags registers the specialization flags on cmd.
func (o *tuningOpts) addBalassaFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.continuous, "continuous", false, "keep raw Balassa ratios instead of discretizing")
	cmd.Flags().Float64Var(&o.cutoff, "cutoff", pipeline.DefaultCutoff, "discretization cutoff")
}

// addComplexityFlags registers the complexity flags on cmd.
func (o *tuningOpts) addComplexityFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.method, "method", "m", pipeline.DefaultMethod, "complexity method: fitness, reflections, eigenvalues")
	cmd.Flags().IntVar(&o.iterations, "iterations", 0, "iteration budget (0 = method default)")
	cmd.Flags().Float64Var(&o.tolerance, "tolerance", 0, "fitness convergence tolerance (0 = default)")
}

// addProjectionFlags registers the network projection flags on cmd.
func (o *tuningOpts) addProjectionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.threshold, "threshold", 0, "minimum proximity for a network link")
	cmd.Flags().Float64Var(&o.avgLinks, "avg-links", 0, "trim networks to this average degree (0 = keep all)")
	cmd.Flags().Uint64Var(&o.seed, "seed", pipeline.DefaultSeed, "random seed for community detection")
}

// options assembles pipeline options from the config file and any flags the
// user changed. Flags registered on cmd win over config values; flags a
// command never registered report unchanged and fall through to config.
func (o *tuningOpts) options(cmd *cobra.Command, cfg *dataset.Config, in *inputOpts) pipeline.Options {
	opts := pipeline.Options{
		Continuous: cfg.Balassa.Continuous,
		Cutoff:     cfg.Balassa.Cutoff,
		Method:     cfg.Complexity.Method,
		Iterations: cfg.Complexity.Iterations,
		Tolerance:  cfg.Complexity.Tolerance,
		Threshold:  cfg.Projection.Threshold,
		AvgLinks:   cfg.Projection.AvgLinks,
		Seed:       cfg.Projection.Seed,
		Refresh:    in.refresh,
	}

	f := cmd.Flags()
	if f.Changed("continuous") {
		opts.Continuous = o.continuous
	}
	if f.Changed("cutoff") {
		opts.Cutoff = o.cutoff
	}
	if f.Changed("method") {
		opts.Method = o.method
	}
	if f.Changed("iterations") {
		opts.Iterations = o.iterations
	}
	if f.Changed("tolerance") {
		opts.Tolerance = o.tolerance
	}
	if f.Changed("threshold") {
		opts.Threshold = o.threshold
	}
	if f.Changed("avg-links") {
		opts.AvgLinks = o.avgLinks
	}
	if f.Changed("seed") {
		opts.Seed = o.seed
	}
	return opts
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner with the configured cache backend.
func newRunner(ctx context.Context, cfg *dataset.Config, noCache bool, logger *log.Logger) (*pipeline.Runner, error) {
	c, err := newCacheBackend(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(c, nil, logger), nil
}

// newCacheBackend selects a cache backend from the config.
// An empty backend means the local file cache; "none" and --no-cache
// disable caching without failing.
func newCacheBackend(ctx context.Context, cfg dataset.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case "", "file":
		dir := cfg.Dir
		if dir == "" {
			var err error
			dir, err = cacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	case "mongo":
		db := cfg.MongoDatabase
		if db == "" {
			db = appName
		}
		coll := cfg.MongoCollection
		if coll == "" {
			coll = "results"
		}
		return cache.NewMongoCache(ctx, cfg.MongoURI, db, coll)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend: %s", cfg.Backend)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/ecomplexity/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
