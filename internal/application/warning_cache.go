package application

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// warningKey identifies one conflict query. Instants are stored as UnixNano so
// equal times in different locations share an entry.
type warningKey struct {
	start     int64
	end       int64
	excludeID string
}

func newWarningKey(start, end time.Time, excludeID string) warningKey {
	return warningKey{start: start.UnixNano(), end: end.UnixNano(), excludeID: excludeID}
}

type cachedWarnings struct {
	warnings []ConflictWarning
	deadline time.Time
}

// warningCache memoises conflict warnings between store mutations. Entries
// leave the cache on expiry, on invalidation, or least-recently-used first
// once the capacity is reached.
type warningCache struct {
	mu       sync.Mutex
	clock    func() time.Time
	lifetime time.Duration
	epoch    uint64
	entries  *lru.Cache[warningKey, cachedWarnings]
}

func newWarningCache(lifetime time.Duration, capacity int, clock func() time.Time) *warningCache {
	if lifetime <= 0 {
		lifetime = warningCacheTTL
	}
	if capacity <= 0 {
		capacity = warningCacheEntries
	}
	if clock == nil {
		clock = time.Now
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[warningKey, cachedWarnings](capacity)
	return &warningCache{
		clock:    clock,
		lifetime: lifetime,
		entries:  entries,
	}
}

// Generation reports the current epoch. Results computed under an older epoch
// are ignored by Store.
func (c *warningCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *warningCache) Get(key warningKey) ([]ConflictWarning, bool) {
	if c == nil {
		return nil, false
	}
	hit, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	if c.clock().After(hit.deadline) {
		c.entries.Remove(key)
		return nil, false
	}
	return copyWarnings(hit.warnings), true
}

func (c *warningCache) Store(key warningKey, generation uint64, warnings []ConflictWarning) {
	if c == nil {
		return
	}
	entry := cachedWarnings{
		warnings: copyWarnings(warnings),
		deadline: c.clock().Add(c.lifetime),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.epoch {
		return
	}
	c.entries.Add(key, entry)
}

// Invalidate empties the cache and advances the epoch.
func (c *warningCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.epoch++
	c.entries.Purge()
	c.mu.Unlock()
}

func (c *warningCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func copyWarnings(warnings []ConflictWarning) []ConflictWarning {
	if len(warnings) == 0 {
		return nil
	}
	return append([]ConflictWarning(nil), warnings...)
}
