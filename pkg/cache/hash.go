package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds a stage cache key of the form prefix:hash(parts...).
// The parts are the option values that affect the stage's result, so two
// runs with the same inputs and options share an entry.
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes the full 64-character hex SHA-256 of data. It fingerprints
// matrices and datasets for cache keys and API responses.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
