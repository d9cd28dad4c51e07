package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// EvictCallback is called when an entry is evicted from the cache.
// The Redis backend relies on server-side expiry and never calls it.
type EvictCallback func(key string, value []byte)

// Cache stores response bodies keyed by request identity.
// Implementations must be safe for concurrent use by the download workers.
type Cache interface {
	// Get returns the cached value and true, or nil and false on a miss.
	Get(key string) ([]byte, bool)

	// Set stores value under key, replacing any previous entry.
	Set(key string, value []byte)

	// Len returns the number of live entries.
	Len() int

	// Close releases connections held by the backend.
	Close() error
}

// Key derives a fixed-length cache key from an HTTP method and absolute URL.
// Signed query strings can be long, so the URL is hashed.
func Key(method, url string) string {
	sum := sha256.Sum256([]byte(method + " " + url))
	return method + ":" + hex.EncodeToString(sum[:16])
}
