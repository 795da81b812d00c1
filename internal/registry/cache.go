package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// cacheKey identifies one cached fact about one station.
type cacheKey struct {
	station uuid.UUID
	key     string
}

type cacheEntry struct {
	at    time.Time
	value int64
}

// Cache is a 24h-freshness memo used by downloaders/decoders to avoid
// re-deriving or re-fetching a fact (e.g. "last known archive pointer at
// the upstream API") on every tick.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]cacheEntry)}
}

// Get returns the cached value for (station, key) if it was stored less
// than CacheFreshness ago; otherwise (0, false).
func (c *Cache) Get(station uuid.UUID, key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{station, key}]
	if !ok || time.Since(e.at) > CacheFreshness {
		return 0, false
	}
	return e.value, true
}

// Set stores value for (station, key), timestamped now.
func (c *Cache) Set(station uuid.UUID, key string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{station, key}] = cacheEntry{at: time.Now(), value: value}
}
