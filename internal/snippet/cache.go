package snippet

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of snippet lists kept when no size is given.
const DefaultCacheSize = 1000

// Key identifies one extraction. Keyword is stored trimmed, so "" stands for
// the no-keyword preview.
type Key struct {
	BookID        string
	Keyword       string
	MaxSnippets   int
	ContextLength int
}

// KeyOf builds the cache key for req.
func KeyOf(req Request) Key {
	return Key{
		BookID:        req.BookID,
		Keyword:       strings.TrimSpace(req.Keyword),
		MaxSnippets:   req.MaxSnippets,
		ContextLength: req.ContextLength,
	}
}

func (k Key) flightKey(version uint64) string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%d\x00%d", version, k.BookID, k.Keyword, k.MaxSnippets, k.ContextLength)
}

type entry struct {
	snippets []Snippet
	version  uint64
}

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"` // capacity evictions only
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

// Cache is a read-through LRU of snippet lists stamped with the corpus
// version they were computed against. Entries from an older version are
// never served. Concurrent misses for the same key share one computation.
// Failed computations are not stored.
type Cache struct {
	lru      *lru.Cache[Key, entry]
	group    singleflight.Group
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache creates a cache holding at most size entries.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &Cache{capacity: size}
	c.lru, _ = lru.New[Key, entry](size)
	return c
}

// GetOrCompute returns the snippets cached for key at version, or runs
// compute and caches its result. The returned slice is the caller's own.
//
// If ctx ends while waiting, GetOrCompute returns ctx.Err(); the computation
// keeps running and may still populate the cache.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, version uint64, compute func() ([]Snippet, error)) ([]Snippet, error) {
	if e, ok := c.lru.Get(key); ok {
		if e.version == version {
			c.hits.Add(1)
			return slices.Clone(e.snippets), nil
		}
		if e.version < version {
			c.lru.Remove(key)
		}
	}
	c.misses.Add(1)

	ch := c.group.DoChan(key.flightKey(version), func() (any, error) {
		snippets, err := compute()
		if err != nil {
			return nil, err
		}
		stored := slices.Clone(snippets)
		if stored == nil {
			stored = []Snippet{}
		}
		// A caller on an older snapshot must not displace a newer entry.
		if cur, ok := c.lru.Peek(key); !ok || cur.version <= version {
			if evicted := c.lru.Add(key, entry{snippets: stored, version: version}); evicted {
				c.evictions.Add(1)
			}
		}
		return stored, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Snippet)), nil
	}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
	}
}
