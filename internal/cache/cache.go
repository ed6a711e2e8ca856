// Package cache stores static reference downloads (the GKG theme vocabulary)
// between runs. Per-claim data never goes through it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a filesystem-safe cache key from a namespace and a source (usually a URL)
func Key(namespace, source string) string {
	hash := sha256.Sum256([]byte(source))
	return "factsift-" + namespace + "-v1-" + hex.EncodeToString(hash[:12])
}

// GetOrLoad returns the cached value for key, or calls load and stores its result.
// Store failures are not fatal; the loaded value is still returned.
func GetOrLoad(c Cache, key string, ttl time.Duration, load func() ([]byte, error)) ([]byte, bool, error) {
	if c != nil {
		if val, ok := c.Get(key); ok {
			return val, true, nil
		}
	}

	val, err := load()
	if err != nil {
		return nil, false, err
	}

	if c != nil {
		_ = c.Set(key, val, ttl)
	}
	return val, false, nil
}
