// Package cache provides pluggable byte caches and deterministic cache keys
// for pipeline stage results.
//
// Four backends are available: file (CLI usage), Redis and MongoDB (server
// deployments), and null (caching disabled). Keys are derived from the input
// matrix hash plus the stage options, so two runs over the same data with the
// same options share cache entries.
package cache

import (
	"context"
	"time"
)

// TTLs per stage. Stage results are pure functions of their inputs, so the
// TTLs only bound storage growth, not staleness.
const (
	// TTLMatrix is the TTL for built trade matrices.
	TTLMatrix = 7 * 24 * time.Hour
	// TTLBalassa is the TTL for specialization matrices.
	TTLBalassa = 7 * 24 * time.Hour
	// TTLComplexity is the TTL for complexity index results.
	TTLComplexity = 7 * 24 * time.Hour
	// TTLProximity is the TTL for proximity matrix pairs.
	TTLProximity = 7 * 24 * time.Hour
	// TTLProjection is the TTL for projected networks.
	TTLProjection = 24 * time.Hour
	// TTLOutlook is the TTL for outlook indicator results.
	TTLOutlook = 24 * time.Hour
)

// Cache is a byte-oriented cache with TTL support.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// BalassaKeyOpts are the option fields that distinguish specialization
// matrix cache entries.
type BalassaKeyOpts struct {
	Discrete bool    `json:"discrete"`
	Cutoff   float64 `json:"cutoff"`
}

// ComplexityKeyOpts are the option fields that distinguish complexity
// result cache entries.
type ComplexityKeyOpts struct {
	Method     string  `json:"method"`
	Iterations int     `json:"iterations"`
	Tolerance  float64 `json:"tolerance"`
}

// ProjectionKeyOpts are the option fields that distinguish projected
// network cache entries.
type ProjectionKeyOpts struct {
	Axis      string  `json:"axis"`
	Threshold float64 `json:"threshold"`
	AvgLinks  float64 `json:"avg_links"`
}

// Keyer generates cache keys for pipeline stages. Each method takes the
// SHA-256 hash of the stage's upstream input plus the options that shape the
// output.
type Keyer interface {
	// MatrixKey generates a key for a built trade matrix from the hash of
	// the raw input records.
	MatrixKey(inputHash string) string
	// BalassaKey generates a key for a specialization matrix.
	BalassaKey(matrixHash string, opts BalassaKeyOpts) string
	// ComplexityKey generates a key for a complexity result.
	ComplexityKey(specializationHash string, opts ComplexityKeyOpts) string
	// ProximityKey generates a key for the proximity matrix pair.
	ProximityKey(specializationHash string) string
	// ProjectionKey generates a key for a projected network.
	ProjectionKey(proximityHash string, opts ProjectionKeyOpts) string
	// OutlookKey generates a key for outlook indicators. The hash covers the
	// specialization matrix, proximity matrix, and complexity scores.
	OutlookKey(combinedHash string) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// MatrixKey generates a key for a built trade matrix.
func (k *DefaultKeyer) MatrixKey(inputHash string) string {
	return "matrix:" + inputHash
}

// BalassaKey generates a key for a specialization matrix.
func (k *DefaultKeyer) BalassaKey(matrixHash string, opts BalassaKeyOpts) string {
	return hashKey("balassa", matrixHash, opts)
}

// ComplexityKey generates a key for a complexity result.
func (k *DefaultKeyer) ComplexityKey(specializationHash string, opts ComplexityKeyOpts) string {
	return hashKey("complexity", specializationHash, opts)
}

// ProximityKey generates a key for the proximity matrix pair.
func (k *DefaultKeyer) ProximityKey(specializationHash string) string {
	return "proximity:" + specializationHash
}

// ProjectionKey generates a key for a projected network.
func (k *DefaultKeyer) ProjectionKey(proximityHash string, opts ProjectionKeyOpts) string {
	return hashKey("projection", proximityHash, opts)
}

// OutlookKey generates a key for outlook indicators.
func (k *DefaultKeyer) OutlookKey(combinedHash string) string {
	return "outlook:" + combinedHash
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
