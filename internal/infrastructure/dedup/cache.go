package dedup

import (
	"context"
	"sync"
	"time"
)

// LocalDeliveryDedup adapts a Cache to the delivery-dedup port for
// single-instance deployments.
type LocalDeliveryDedup struct {
	Cache *Cache
}

// Seen reports whether the delivery key was marked before.
func (l LocalDeliveryDedup) Seen(_ context.Context, key string) (bool, error) {
	return l.Cache.Seen(key), nil
}

// Mark remembers the delivery key.
func (l LocalDeliveryDedup) Mark(_ context.Context, key string) error {
	l.Cache.Mark(key)
	return nil
}

// Cache is a bounded in-memory map from key to last-seen timestamp. It backs
// two independent uses: exact delivery de-duplication (Seen/Mark, no window)
// and entity-level rate limiting (WasRecentlyProcessed/MarkProcessed, fixed
// window).
//
// Eviction is insertion-order, not LRU-by-access: the cache's only job is to
// suppress bursts, not to provide long-term memory. State is not persisted; a
// restart forgets everything, which is safe because the content store is the
// durable source of truth for whether a sync is actually needed.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	order      []string
	maxEntries int
	now        func() time.Time
}

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 100

// NewCache creates a cache evicting oldest-inserted entries past maxEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]time.Time),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Seen reports whether the key was ever marked, regardless of age.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Mark records the key with the current timestamp.
func (c *Cache) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key)
}

// WasRecentlyProcessed reports whether the entity key was marked within the
// window.
func (c *Cache) WasRecentlyProcessed(entityKey string, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[entityKey]
	if !ok {
		return false
	}
	return c.now().Sub(t) < window
}

// MarkProcessed records the entity key with the current timestamp.
func (c *Cache) MarkProcessed(entityKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(entityKey)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// insert records a key and evicts the oldest-inserted entries past the cap.
// Callers must hold c.mu.
func (c *Cache) insert(key string) {
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = c.now()

	for len(c.entries) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
