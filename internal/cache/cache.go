// Package cache provides a query-result cache with TTL support.
//
// The API layer stores serialized JSON payloads here so repeated stat and
// type listings do not hit SQLite on every request.
package cache

import (
	"sync"
	"time"
)

// Cache provides thread-safe caching of serialized payloads with expiration.
type Cache interface {
	// Get retrieves a payload. Returns false if not found or expired.
	Get(key string) ([]byte, bool)
	// Set stores a payload with the specified TTL.
	Set(key string, payload []byte, ttl time.Duration)
	// Delete removes one key.
	Delete(key string)
	// Clear removes all cached payloads. Called after every import so
	// readers never see pre-import results.
	Clear()
	// Stats returns cache performance counters.
	Stats() Stats
	// Close releases background resources (janitor, connections).
	Close() error
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	CurrentSize int   `json:"current_size"`
}

type entry struct {
	payload    []byte
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is the in-process fallback implementation.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a background janitor that evicts expired entries.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired() {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.payload, true
}

func (c *memoryCache) Set(key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{payload: payload, expiration: time.Now().Add(ttl)}
	c.stats.Sets++
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// deleteExpired removes expired entries; called by the janitor.
func (c *memoryCache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
}

// Close terminates the janitor goroutine, if any.
func (c *memoryCache) Close() error {
	if c.janitor != nil {
		close(c.janitor.stop)
		c.janitor = nil
	}
	return nil
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}
