package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cache memoizes values for the lifetime of one run. Implementations must be safe
// for concurrent use and must never expire an entry mid-run.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Len() int
	Clear()
}

// Key builds a cache key from its parts. Parts are joined with a separator that
// cannot appear in catalog names, then hashed.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "covgate:v1:" + hex.EncodeToString(hash[:])
}

// Nop is a cache that stores nothing
type Nop struct{}

func (Nop) Get(string) (any, bool) { return nil, false }
func (Nop) Set(string, any) {}
func (Nop) Len() int { return 0 }
func (Nop) Clear() {}
