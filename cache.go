package auth

import (
	"sync"
	"time"
)

// DefaultPurgeInterval is the minimum time between two sweeps of a
// PurgingCache unless overridden.
const DefaultPurgeInterval = 60 * time.Second

// PurgingCache is a keyed store of Expirable values that lazily sweeps and
// evicts expired entries. A sweep is triggered opportunistically on Set once
// the purge interval has elapsed; there is no background timer, so callers
// that never Set will never trigger a sweep. Reads are plain lookups and may
// return stale entries until the next sweep; correctness-critical paths must
// re-validate with IsValidAt after Get.
type PurgingCache[K comparable, V Expirable] struct {
	mu            sync.Mutex
	entries       map[K]V
	lastPurge     time.Time
	purgeInterval time.Duration
	clock         Clock
}

// CacheOption configures a PurgingCache.
type CacheOption[K comparable, V Expirable] func(*PurgingCache[K, V])

// WithPurgeInterval sets the minimum time between sweeps.
func WithPurgeInterval[K comparable, V Expirable](interval time.Duration) CacheOption[K, V] {
	return func(c *PurgingCache[K, V]) {
		c.purgeInterval = interval
	}
}

// WithCacheClock injects a custom clock (useful for tests).
func WithCacheClock[K comparable, V Expirable](clock Clock) CacheOption[K, V] {
	return func(c *PurgingCache[K, V]) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewPurgingCache creates an empty cache. The first sweep becomes due one
// purge interval after construction.
func NewPurgingCache[K comparable, V Expirable](opts ...CacheOption[K, V]) *PurgingCache[K, V] {
	c := &PurgingCache[K, V]{
		entries:       make(map[K]V),
		purgeInterval: DefaultPurgeInterval,
		clock:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.lastPurge = c.clock()
	return c
}

// Set inserts or overwrites the value for key and, before returning, sweeps
// the cache if a purge is due. Overwriting fires the death hook of the
// previous value.
func (c *PurgingCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok {
		die(prev)
	}
	c.entries[key] = value
	c.purgeIfDue()
}

// Get is a plain lookup with no side effects.
func (c *PurgingCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	return v, ok
}

// Delete removes the value for key, firing its death hook.
func (c *PurgingCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if !ok {
		return false
	}
	die(v)
	delete(c.entries, key)
	return true
}

// Remove removes the value for key without firing its death hook. Used when
// an entry is consumed rather than evicted.
func (c *PurgingCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Len returns the number of entries, including any not yet swept.
func (c *PurgingCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge sweeps unconditionally: every entry is nudged, then evicted with its
// death hook if no longer valid. Returns the number of evicted entries.
func (c *PurgingCache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep()
}

// purgeIfDue sweeps when the purge interval has elapsed. Callers must hold
// the lock.
func (c *PurgingCache[K, V]) purgeIfDue() {
	now := c.clock()
	if now.Sub(c.lastPurge) <= c.purgeInterval {
		return
	}
	c.sweep()
}

func (c *PurgingCache[K, V]) sweep() int {
	now := c.clock()
	evicted := 0
	for key, value := range c.entries {
		nudge(value)
		if value.IsValidAt(now) {
			continue
		}
		die(value)
		delete(c.entries, key)
		evicted++
	}
	c.lastPurge = now
	return evicted
}
