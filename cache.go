package warden

import (
	"sync"
	"time"
)

// cacheKey uniquely identifies a permission check. All fields are required to
// form a unique key; the cache is exact-match only.
type cacheKey struct {
	PrincipalID string
	Mode        AccessMode
	Permission  Permission
	ObjectID    string
}

// cacheEntry stores the result of a permission check.
type cacheEntry struct {
	granted   bool
	expiresAt time.Time // zero means no expiry
}

// Cache stores permission check results. It is safe for concurrent use from
// multiple goroutines.
//
// Permission state is transaction-local: a cache must be scoped to the
// transaction whose Store the Resolver was built with, and discarded on
// commit or rollback. Sharing a cache across transactions leaks decisions
// made against another snapshot.
type Cache interface {
	// Get retrieves a cached result. If ok is false, the entry doesn't
	// exist or is expired.
	Get(sctx SecurityContext, perm Permission, object Object) (granted bool, ok bool)

	// Set stores a result.
	Set(sctx SecurityContext, perm Permission, object Object, granted bool)
}

// CacheImpl is the default in-memory cache implementation with optional TTL.
// It uses a sync.RWMutex for goroutine safety and grows unbounded within its
// TTL window.
type CacheImpl struct {
	mu    sync.RWMutex
	items map[cacheKey]cacheEntry
	ttl   time.Duration // 0 means no expiry
}

// CacheOption configures a Cache.
type CacheOption func(*CacheImpl)

// WithTTL sets the time-to-live for cache entries. A TTL of 0 (default)
// means entries never expire within the cache's lifetime. Since the cache is
// transaction-scoped, the TTL mainly bounds staleness in long-running batch
// transactions.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CacheImpl) {
		c.ttl = ttl
	}
}

// NewCache creates a new permission cache.
func NewCache(opts ...CacheOption) *CacheImpl {
	c := &CacheImpl{
		items: make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(sctx SecurityContext, perm Permission, object Object) cacheKey {
	return cacheKey{
		PrincipalID: sctx.PrincipalID,
		Mode:        sctx.Mode,
		Permission:  perm,
		ObjectID:    object.ID,
	}
}

// Get retrieves a cached result.
func (c *CacheImpl) Get(sctx SecurityContext, perm Permission, object Object) (bool, bool) {
	k := key(sctx, perm, object)

	c.mu.RLock()
	entry, ok := c.items[k]
	c.mu.RUnlock()

	if !ok {
		return false, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, k)
		c.mu.Unlock()
		return false, false
	}

	return entry.granted, true
}

// Set stores a result.
func (c *CacheImpl) Set(sctx SecurityContext, perm Permission, object Object, granted bool) {
	entry := cacheEntry{granted: granted}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[key(sctx, perm, object)] = entry
	c.mu.Unlock()
}

// Invalidate drops every entry touching the given object id, for callers
// that mutate graph data outside the grant store and know the change is
// confined to one object. Grant mutations go further and clear the whole
// cache, since a decision on one object can depend on another through
// propagation and the group closure.
func (c *CacheImpl) Invalidate(objectID string) {
	c.mu.Lock()
	for k := range c.items {
		if k.ObjectID == objectID {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Size returns the number of entries in the cache.
func (c *CacheImpl) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries from the cache. Call on transaction boundaries
// when reusing a cache value across transactions.
func (c *CacheImpl) Clear() {
	c.mu.Lock()
	c.items = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// Ensure CacheImpl implements Cache.
var _ Cache = (*CacheImpl)(nil)
