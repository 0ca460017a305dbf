package instructor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pfrederiksen/schedule-planner/internal/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a resolved record is trusted
const DefaultTTL = 7 * 24 * time.Hour

// Cache holds resolved instructors by name with a TTL. A nil record is a
// remembered miss, so unknown names are not searched again until it expires.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Instructor
	cachedAt map[string]time.Time
	TTL      time.Duration
}

// NewCache creates an empty cache. A non-positive ttl selects DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:  make(map[string]*Instructor),
		cachedAt: make(map[string]time.Time),
		TTL:      ttl,
	}
}

// Get returns the cached record for name. The second result is false when
// the name is unknown or its entry has expired.
func (c *Cache) Get(name string) (*Instructor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(name)
	inst, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	cachedTime, hasTime := c.cachedAt[key]
	if !hasTime || time.Since(cachedTime) > c.TTL {
		delete(c.entries, key)
		delete(c.cachedAt, key)
		return nil, false
	}

	return inst, true
}

// Set stores the record for name; inst may be nil to remember a miss
func (c *Cache) Set(name string, inst *Instructor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(name)
	c.entries[key] = inst
	c.cachedAt[key] = time.Now()
}

// CleanExpired removes expired entries and returns how many were removed
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := time.Now()
	for key, cachedTime := range c.cachedAt {
		if now.Sub(cachedTime) > c.TTL {
			delete(c.entries, key)
			delete(c.cachedAt, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type cacheFile struct {
	Entries  map[string]*Instructor `json:"entries"`
	CachedAt map[string]time.Time   `json:"cached_at"`
}

// MarshalJSON encodes the entries; the TTL is configuration and is not stored.
func (c *Cache) MarshalJSON() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(cacheFile{Entries: c.entries, CachedAt: c.cachedAt})
}

// UnmarshalJSON replaces the entries with the decoded ones
func (c *Cache) UnmarshalJSON(data []byte) error {
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.Entries == nil {
		f.Entries = make(map[string]*Instructor)
	}
	if f.CachedAt == nil {
		f.CachedAt = make(map[string]time.Time)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = f.Entries
	c.cachedAt = f.CachedAt
	return nil
}

// cacheKey normalizes a name: case and spacing do not matter
func cacheKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CachingResolver memoizes another Resolver. Concurrent lookups of the same
// name share one upstream request. Errors are not cached.
type CachingResolver struct {
	next  Resolver
	cache *Cache
	group singleflight.Group
}

// NewCachingResolver wraps next with cache
func NewCachingResolver(next Resolver, cache *Cache) *CachingResolver {
	if cache == nil {
		cache = NewCache(DefaultTTL)
	}
	return &CachingResolver{next: next, cache: cache}
}

// Cache returns the underlying cache
func (r *CachingResolver) Cache() *Cache {
	return r.cache
}

// Resolve returns the cached record for fullName or asks the wrapped resolver
func (r *CachingResolver) Resolve(ctx context.Context, fullName string) (*Instructor, error) {
	if inst, ok := r.cache.Get(fullName); ok {
		logger.IncrCounter("instructor.cache.hit")
		return inst, nil
	}
	logger.IncrCounter("instructor.cache.miss")

	v, err, _ := r.group.Do(cacheKey(fullName), func() (interface{}, error) {
		// A lookup that finished while we waited has filled the cache
		if inst, ok := r.cache.Get(fullName); ok {
			return inst, nil
		}
		inst, err := r.next.Resolve(ctx, fullName)
		if err != nil {
			return nil, err
		}
		r.cache.Set(fullName, inst)
		return inst, nil
	})
	if err != nil {
		return nil, err
	}

	inst, _ := v.(*Instructor)
	return inst, nil
}
