package dataset

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

// DefaultConfigFile is the conventional configuration filename.
const DefaultConfigFile = "ecomplexity.toml"

// Config is the on-disk project configuration.
//
// Example:
//
//	[input]
//	path = "trade.csv"
//	country_column = "reporter"
//	product_column = "commodity"
//	value_column = "export_value"
//
//	[balassa]
//	continuous = false
//	cutoff = 1.0
//
//	[complexity]
//	method = "fitness"
//	iterations = 1000
//
//	[projection]
//	avg_links = 4
//
//	[cache]
//	backend = "file"
//	dir = ".ecomplexity-cache"
type Config struct {
	Input      InputConfig      `toml:"input"`
	Balassa    BalassaConfig    `toml:"balassa"`
	Complexity ComplexityConfig `toml:"complexity"`
	Projection ProjectionConfig `toml:"projection"`
	Cache      CacheConfig      `toml:"cache"`
}

// InputConfig locates and describes the input data.
type InputConfig struct {
	Path          string `toml:"path"`
	CountryColumn string `toml:"country_column"`
	ProductColumn string `toml:"product_column"`
	ValueColumn   string `toml:"value_column"`
}

// BalassaConfig configures the specialization stage.
type BalassaConfig struct {
	Continuous bool    `toml:"continuous"`
	Cutoff     float64 `toml:"cutoff"`
}

// ComplexityConfig configures the complexity stage.
type ComplexityConfig struct {
	Method     string  `toml:"method"`
	Iterations int     `toml:"iterations"`
	Tolerance  float64 `toml:"tolerance"`
}

// ProjectionConfig configures network projection.
type ProjectionConfig struct {
	Threshold float64 `toml:"threshold"`
	AvgLinks  float64 `toml:"avg_links"`
	Seed      uint64  `toml:"seed"`
}

// CacheConfig selects and configures the cache backend.
// Backend is one of "file", "redis", "mongo", or "none".
type CacheConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisURL        string `toml:"redis_url"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// LoadConfig reads and parses a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	return &cfg, nil
}

// LoadConfigIfPresent loads the configuration file when it exists and
// returns a zero config otherwise. Missing configuration is not an error:
// every setting has a flag or default.
func LoadConfigIfPresent(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.GetCode(err) == errors.ErrCodeFileNotFound {
		return &Config{}, nil
	}
	return cfg, err
}
