package pgfleet

import "sync"

// cacheKey identifies one table's schema in one database.
type cacheKey struct {
	database string
	table    string
}

// schemaCache memoizes successful GetTableSchema results for the lifetime
// of the process. Entries are never refreshed or evicted: a hit returns the
// stored entry even if the live schema has changed since, and restarting
// the process is the only invalidation. Cached entries are shared; callers
// must treat them as immutable.
type schemaCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*TableSchema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{entries: make(map[cacheKey]*TableSchema)}
}

// get returns the cached entry for key and whether one exists.
func (c *schemaCache) get(key cacheKey) (*TableSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// setIfAbsent stores entry under key unless an earlier entry exists, and
// returns whichever entry is now authoritative. Concurrent misses on the
// same key may both compute outside the lock; the first store wins and
// later computations are discarded.
func (c *schemaCache) setIfAbsent(key cacheKey, entry *TableSchema) *TableSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = entry
	return entry
}
