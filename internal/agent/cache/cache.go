package cache

import (
	"sync"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/tools"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is one cached tool result plus the bookkeeping needed for
// invalidation and inspection.
type Entry struct {
	Result       tools.ToolResult
	CreatedAt    time.Time
	LastAccess   time.Time
	PathsTouched []string
}

// Options configures a Cache.
type Options struct {
	// Capacity is the maximum number of entries (LRU eviction beyond this).
	// Defaults to 256 when zero.
	Capacity int
	// TTL is how long an entry remains valid after creation. Defaults to
	// 300s when zero.
	TTL time.Duration
}

// Cache is the session-scoped, TTL-bounded LRU reads
// (side_effects=read) are looked up here before dispatch, and writes/execs
// invalidate entries whose recorded paths overlap the paths just touched.
// A Cache is strictly per-session; it is never shared across sessions.
type Cache struct {
	store *lru.LRU[string, *Entry]

	mu         sync.Mutex
	pathIndex  map[string]map[string]struct{} // path -> set of cache keys
}

// New constructs a Cache from opts, applying the defaults.
func New(opts Options) *Cache {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = 256
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	c := &Cache{pathIndex: make(map[string]map[string]struct{})}
	c.store = lru.NewLRU[string, *Entry](capacity, c.onEvict, ttl)
	return c
}

func (c *Cache) onEvict(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unindexLocked(key, entry.PathsTouched)
}

func (c *Cache) unindexLocked(key string, paths []string) {
	for _, p := range paths {
		if set, ok := c.pathIndex[p]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(c.pathIndex, p)
			}
		}
	}
}

// Get looks up the cached result for (toolName, args), refreshing its
// last-access time on hit.
func (c *Cache) Get(toolName string, args map[string]any) (tools.ToolResult, bool) {
	key := CanonicalKey(toolName, args)
	entry, ok := c.store.Get(key)
	if !ok {
		return tools.ToolResult{}, false
	}
	// The entry is updated in place rather than re-Added: Add would reset
	// its expiry and let a frequently hit entry outlive its TTL.
	c.mu.Lock()
	entry.LastAccess = time.Now()
	result := entry.Result
	c.mu.Unlock()
	result.FromCache = true
	return result, true
}

// Put stores result for (toolName, args), indexing it under pathsTouched so
// a later write to an overlapping path invalidates it.
func (c *Cache) Put(toolName string, args map[string]any, result tools.ToolResult, pathsTouched []string) {
	key := CanonicalKey(toolName, args)
	now := time.Now()
	entry := &Entry{Result: result, CreatedAt: now, LastAccess: now, PathsTouched: pathsTouched}

	c.mu.Lock()
	for _, p := range pathsTouched {
		set, ok := c.pathIndex[p]
		if !ok {
			set = make(map[string]struct{})
			c.pathIndex[p] = set
		}
		set[key] = struct{}{}
	}
	c.mu.Unlock()

	c.store.Add(key, entry)
}

// InvalidatePaths removes every cache entry whose recorded paths intersect
// paths. Called after a write/patch so a subsequent dispatch in the same
// session never observes a stale read.
func (c *Cache) InvalidatePaths(paths []string) {
	c.mu.Lock()
	keys := make(map[string]struct{})
	for _, p := range paths {
		for k := range c.pathIndex[p] {
			keys[k] = struct{}{}
		}
	}
	c.mu.Unlock()

	for k := range keys {
		c.store.Remove(k)
	}
}

// InvalidateAll clears the entire cache. Used as the best-effort fallback
// after an exec-class tool runs, since its blast radius on the filesystem
// cannot be enumerated precisely.
func (c *Cache) InvalidateAll() {
	c.store.Purge()
	c.mu.Lock()
	c.pathIndex = make(map[string]map[string]struct{})
	c.mu.Unlock()
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	return c.store.Len()
}
