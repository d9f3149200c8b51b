package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "balassa:abc", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "balassa:abc")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit {
		t.Fatal("expected hit after Set")
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("Get returned %q, want payload", data)
	}

	if err := c.Delete(ctx, "balassa:abc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "balassa:abc"); hit {
		t.Error("expected miss after Delete")
	}

	// Deleting a missing key is not an error
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	// Already expired at read time
	if err := c.Set(ctx, "key", []byte("stale"), -time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("expired entry should be a miss")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// MatrixKey embeds the input hash directly
	if got := k.MatrixKey("abc123"); got != "matrix:abc123" {
		t.Errorf("MatrixKey unexpected: %s", got)
	}

	// BalassaKey should include options in hash
	bk1 := k.BalassaKey("abc", BalassaKeyOpts{Discrete: true, Cutoff: 1})
	bk2 := k.BalassaKey("abc", BalassaKeyOpts{Discrete: false, Cutoff: 1})
	if bk1 == bk2 {
		t.Error("Different BalassaKeyOpts should produce different keys")
	}

	// ComplexityKey
	ck1 := k.ComplexityKey("abc", ComplexityKeyOpts{Method: "fitness", Iterations: 1000})
	ck2 := k.ComplexityKey("abc", ComplexityKeyOpts{Method: "reflections", Iterations: 1000})
	if ck1 == ck2 {
		t.Error("Different ComplexityKeyOpts should produce different keys")
	}

	// ProximityKey depends only on the specialization hash
	if got := k.ProximityKey("abc"); got != "proximity:abc" {
		t.Errorf("ProximityKey unexpected: %s", got)
	}

	// ProjectionKey
	pk1 := k.ProjectionKey("abc", ProjectionKeyOpts{Axis: "product", AvgLinks: 4})
	pk2 := k.ProjectionKey("abc", ProjectionKeyOpts{Axis: "country", AvgLinks: 4})
	if pk1 == pk2 {
		t.Error("Different ProjectionKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "dataset:trade2020:")

	// All keys should be prefixed
	matrixKey := scoped.MatrixKey("abc")
	if matrixKey != "dataset:trade2020:matrix:abc" {
		t.Errorf("ScopedKeyer MatrixKey unexpected: %s", matrixKey)
	}

	balassaKey := scoped.BalassaKey("abc", BalassaKeyOpts{})
	if len(balassaKey) < 25 || balassaKey[:18] != "dataset:trade2020:" {
		t.Errorf("ScopedKeyer BalassaKey should be prefixed: %s", balassaKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.MatrixKey("abc")
	if key != "prefix:matrix:abc" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(errors.New("permanent")) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestNetworkError(t *testing.T) {
	if NetworkError(nil) != nil {
		t.Error("NetworkError(nil) should return nil")
	}

	err := NetworkError(errors.New("connection refused"))
	if !IsRetryable(err) {
		t.Error("NetworkError should be retryable")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("NetworkError should wrap ErrNetwork")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("NetworkError should keep the cause message: %s", err.Error())
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	permanent := errors.New("permanent")
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return permanent
	})
	if err != permanent {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
