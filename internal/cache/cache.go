// Package cache implements the engine's two-tier file cache: an in-memory
// LRU+TTL tier (hashicorp/golang-lru/v2, the stats/hit-rate accounting
// grounded on providers/base/cache.go's ASTCache) fronting a persistent
// disk tier backed by internal/store's file_cache table.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codegraph/codegraph/internal/errkind"
)

// Entry is a single cached parse result, keyed by content hash.
type Entry struct {
	Hash     string
	Path     string
	Value    []byte // portable JSON encoding of the cached graph.ParseResult
	StoredAt time.Time
}

// size estimates an entry's footprint in the memory tier's byte budget:
// the JSON payload plus its hash/path keys, not a precise allocator
// accounting.
func (e *Entry) size() int64 {
	return int64(len(e.Value) + len(e.Hash) + len(e.Path))
}

// DiskStore is the persistence contract the disk tier writes through to.
// internal/store's GORM-backed file_cache table implements this.
type DiskStore interface {
	GetCacheEntry(ctx context.Context, hash string) (*Entry, bool, error)
	PutCacheEntry(ctx context.Context, e *Entry) error
	DeleteExpiredCacheEntries(ctx context.Context, olderThan time.Time) (int64, error)
}

type ttlEntry struct {
	entry     *Entry
	expiresAt time.Time
}

// defaultMaxBytes is the memory tier's default total-size cap.
const defaultMaxBytes = 100 * 1024 * 1024 // 100 MiB

// maxEntryDivisor sets the per-entry cap as a fraction of the total budget,
// so one oversized file can never consume the whole memory tier.
const maxEntryDivisor = 10

// unboundedEntryCount is golang-lru's count cap, set high enough to never
// bind in practice since this cache enforces capacity by byte size instead.
const unboundedEntryCount = 1 << 30

// Cache is the combined memory+disk cache. All memory-tier bookkeeping is
// guarded by a single mutex (the teacher's cache favors a lock-free sync.Map,
// but TTL expiry plus size accounting here needs a consistent read-modify-
// write, so a plain mutex is used instead). The memory tier is bounded by
// estimated byte size, not entry count: golang-lru's own count-based
// eviction is disabled (a very large entry ceiling) and eviction is driven
// instead by RemoveOldest calls after each Put that pushes totalBytes over
// maxBytes.
type Cache struct {
	mu            sync.Mutex
	mem           *lru.Cache[string, ttlEntry]
	disk          DiskStore
	ttl           time.Duration
	maxBytes      int64
	maxEntryBytes int64
	totalBytes    int64

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// Options configures a Cache.
type Options struct {
	MaxBytes int64         // total memory-tier byte budget; <=0 uses defaultMaxBytes
	TTL      time.Duration // zero disables expiry
	Disk     DiskStore     // optional; nil disables the disk tier
}

// New constructs a Cache.
func New(opts Options) (*Cache, error) {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	c := &Cache{
		disk:          opts.Disk,
		ttl:           opts.TTL,
		maxBytes:      maxBytes,
		maxEntryBytes: maxBytes / maxEntryDivisor,
	}

	onEvict := func(_ string, v ttlEntry) {
		c.totalBytes -= v.entry.size()
	}
	// Entry count is unbounded here on purpose: capacity is enforced by
	// totalBytes/maxBytes via RemoveOldest in put(), not by golang-lru's
	// own count-based eviction.
	mem, err := lru.NewWithEvict[string, ttlEntry](unboundedEntryCount, onEvict)
	if err != nil {
		return nil, errkind.Wrap(errkind.CacheError, "failed to allocate memory tier", err)
	}
	c.mem = mem
	return c, nil
}

// Get returns the cached value for hash, checking the memory tier first
// and falling through to disk (populating memory on a disk hit).
func (c *Cache) Get(ctx context.Context, hash string) (*Entry, bool, error) {
	c.mu.Lock()
	if v, ok := c.mem.Get(hash); ok {
		if c.ttl <= 0 || time.Now().Before(v.expiresAt) {
			c.hits++
			c.mu.Unlock()
			return v.entry, true, nil
		}
		c.mem.Remove(hash)
		c.expirations++
	}
	c.mu.Unlock()

	if c.disk == nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false, nil
	}

	e, ok, err := c.disk.GetCacheEntry(ctx, hash)
	if err != nil {
		return nil, false, errkind.Wrap(errkind.CacheError, "disk cache lookup failed", err)
	}
	c.mu.Lock()
	if ok {
		c.hits++
		c.putMemLocked(e)
	} else {
		c.misses++
	}
	c.mu.Unlock()
	return e, ok, nil
}

// Put writes through to both tiers. An entry larger than the per-entry cap
// is rejected from the memory tier (it still writes to disk) without
// altering the memory tier's totals, per the oversized-entry boundary case.
func (c *Cache) Put(ctx context.Context, e *Entry) error {
	e.StoredAt = time.Now()

	c.mu.Lock()
	if e.size() <= c.maxEntryBytes {
		c.putMemLocked(e)
	}
	c.mu.Unlock()

	if c.disk == nil {
		return nil
	}
	if err := c.disk.PutCacheEntry(ctx, e); err != nil {
		return errkind.Wrap(errkind.CacheError, "disk cache write failed", err)
	}
	return nil
}

// putMemLocked inserts e into the memory tier and evicts the least
// recently used entries (by RemoveOldest) until totalBytes fits maxBytes.
// Callers must hold c.mu.
func (c *Cache) putMemLocked(e *Entry) {
	if old, ok := c.mem.Peek(e.Hash); ok {
		c.totalBytes -= old.entry.size()
	}
	c.mem.Add(e.Hash, ttlEntry{entry: e, expiresAt: c.expiry()})
	c.totalBytes += e.size()

	for c.totalBytes > c.maxBytes {
		// onEvict (registered in New) decrements totalBytes for us.
		if _, _, ok := c.mem.RemoveOldest(); !ok {
			break
		}
		c.evictions++
	}
}

func (c *Cache) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.ttl)
}

// CleanupExpired evicts expired entries from both tiers.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	var expired int64

	c.mu.Lock()
	now := time.Now()
	for _, key := range c.mem.Keys() {
		v, ok := c.mem.Peek(key)
		if ok && c.ttl > 0 && now.After(v.expiresAt) {
			// onEvict (registered in New) decrements totalBytes for us.
			c.mem.Remove(key)
			expired++
			c.expirations++
		}
	}
	c.mu.Unlock()

	if c.disk == nil || c.ttl <= 0 {
		return expired, nil
	}
	n, err := c.disk.DeleteExpiredCacheEntries(ctx, now.Add(-c.ttl))
	if err != nil {
		return expired, errkind.Wrap(errkind.CacheError, "disk cache cleanup failed", err)
	}
	return expired + n, nil
}

// Stats reports cumulative hit/miss/eviction/expiration counters, the live
// hit rate, and the memory tier's current entry count and byte size.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	EntryCount  int
	SizeBytes   int64
	HitRate     float64
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		EntryCount:  c.mem.Len(),
		SizeBytes:   c.totalBytes,
		HitRate:     rate,
	}
}
