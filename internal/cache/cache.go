// Package cache memoizes stage outputs by content-derived keys.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
)

// Cache is an in-memory memo store safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[string]any{}}
}

// Get returns the value stored under key, if present.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

// Size returns the number of entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = map[string]any{}
	c.mu.Unlock()
}

// Key derives a deterministic cache key from a stage name and its semantic
// input parameters. Params are serialized in sorted key order so two calls
// with identical inputs collide and any differing parameter does not.
func Key(stage string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(stage)
	for _, k := range keys {
		b.WriteByte(0x1f)
		b.WriteString(k)
		b.WriteByte(0x1e)
		b.WriteString(params[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
