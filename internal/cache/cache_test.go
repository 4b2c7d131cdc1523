package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisk struct {
	entries map[string]*Entry
}

func newFakeDisk() *fakeDisk { return &fakeDisk{entries: make(map[string]*Entry)} }

func (f *fakeDisk) GetCacheEntry(ctx context.Context, hash string) (*Entry, bool, error) {
	e, ok := f.entries[hash]
	return e, ok, nil
}

func (f *fakeDisk) PutCacheEntry(ctx context.Context, e *Entry) error {
	f.entries[e.Hash] = e
	return nil
}

func (f *fakeDisk) DeleteExpiredCacheEntries(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	for hash, e := range f.entries {
		if e.StoredAt.Before(olderThan) {
			delete(f.entries, hash)
			n++
		}
	}
	return n, nil
}

func TestPutThenGetMemoryHit(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	require.NoError(t, c.Put(context.Background(), &Entry{Hash: "abc", Value: []byte("x")}))

	got, ok, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("x"), got.Value)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestGetMissWithoutDisk(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	_, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestDiskFallthroughPopulatesMemory(t *testing.T) {
	disk := newFakeDisk()
	disk.entries["h1"] = &Entry{Hash: "h1", Value: []byte("from-disk"), StoredAt: time.Now()}

	c, err := New(Options{Disk: disk})
	require.NoError(t, err)

	got, ok, err := c.Get(context.Background(), "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("from-disk"), got.Value)

	// Second lookup should now hit memory, not touch disk's entry map identity.
	got2, ok, err := c.Get(context.Background(), "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, got, got2)
}

func TestTTLExpiry(t *testing.T) {
	c, err := New(Options{TTL: time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), &Entry{Hash: "abc", Value: []byte("x")}))

	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Expirations, "a TTL-expired entry counts as an expiration, not an eviction")
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestCleanupExpiredEvictsFromBothTiers(t *testing.T) {
	disk := newFakeDisk()
	c, err := New(Options{TTL: time.Millisecond, Disk: disk})
	require.NoError(t, err)

	require.NoError(t, c.Put(context.Background(), &Entry{Hash: "abc", Value: []byte("x")}))
	time.Sleep(5 * time.Millisecond)

	n, err := c.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
	assert.GreaterOrEqual(t, c.Stats().Expirations, int64(1))
}

func TestOversizedEntryRejectedFromMemoryButStillWritesDisk(t *testing.T) {
	disk := newFakeDisk()
	c, err := New(Options{MaxBytes: 100, Disk: disk})
	require.NoError(t, err)

	big := &Entry{Hash: "big", Value: make([]byte, 50)} // > maxBytes/10 == 10
	require.NoError(t, c.Put(context.Background(), big))

	stats := c.Stats()
	assert.Equal(t, 0, stats.EntryCount, "oversized entry must not enter the memory tier")
	assert.Equal(t, int64(0), stats.SizeBytes, "rejecting an oversized entry must not alter the memory tier's totals")

	_, ok, err := disk.GetCacheEntry(context.Background(), "big")
	require.NoError(t, err)
	assert.True(t, ok, "disk tier still receives the entry")
}

func TestMemoryTierEvictsBySizeNotCount(t *testing.T) {
	// Each entry is 10 bytes (9-byte value + 1-byte hash), exactly the
	// per-entry cap of MaxBytes/10, so eleven of them overflow the total.
	c, err := New(Options{MaxBytes: 100})
	require.NoError(t, err)

	require.NoError(t, c.Put(context.Background(), &Entry{Hash: "a", Value: make([]byte, 9)}))
	require.NoError(t, c.Put(context.Background(), &Entry{Hash: "b", Value: make([]byte, 9)}))
	require.NoError(t, c.Put(context.Background(), &Entry{Hash: "c", Value: make([]byte, 9)}))
	for _, h := range []string{"d", "e", "f", "g", "h", "i", "j", "k"} {
		require.NoError(t, c.Put(context.Background(), &Entry{Hash: h, Value: make([]byte, 9)}))
	}

	stats := c.Stats()
	assert.LessOrEqual(t, stats.SizeBytes, int64(100), "memory cache total size must stay within the configured cap")
	assert.Greater(t, stats.Evictions, int64(0))

	_, ok, _ := c.Get(context.Background(), "a")
	assert.False(t, ok, "the least recently used entry should be the one evicted")
}
