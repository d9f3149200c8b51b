package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several datasets or tenants share one cache backend
// and need separate key spaces.
//
// Example usage:
//
//	// Dataset-specific keys
//	dsKeyer := NewScopedKeyer(NewDefaultKeyer(), "dataset:trade2020:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MatrixKey generates a prefixed key for a built trade matrix.
func (k *ScopedKeyer) MatrixKey(inputHash string) string {
	return k.prefix + k.inner.MatrixKey(inputHash)
}

// BalassaKey generates a prefixed key for a specialization matrix.
func (k *ScopedKeyer) BalassaKey(matrixHash string, opts BalassaKeyOpts) string {
	return k.prefix + k.inner.BalassaKey(matrixHash, opts)
}

// ComplexityKey generates a prefixed key for a complexity result.
func (k *ScopedKeyer) ComplexityKey(specializationHash string, opts ComplexityKeyOpts) string {
	return k.prefix + k.inner.ComplexityKey(specializationHash, opts)
}

// ProximityKey generates a prefixed key for the proximity matrix pair.
func (k *ScopedKeyer) ProximityKey(specializationHash string) string {
	return k.prefix + k.inner.ProximityKey(specializationHash)
}

// ProjectionKey generates a prefixed key for a projected network.
func (k *ScopedKeyer) ProjectionKey(proximityHash string, opts ProjectionKeyOpts) string {
	return k.prefix + k.inner.ProjectionKey(proximityHash, opts)
}

// OutlookKey generates a prefixed key for outlook indicators.
func (k *ScopedKeyer) OutlookKey(combinedHash string) string {
	return k.prefix + k.inner.OutlookKey(combinedHash)
}
