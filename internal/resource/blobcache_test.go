package resource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobCacheGetMissAndPutRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewBlobCache(1 << 20)

	_, ok := c.Get("a.class")
	require.False(t, ok)
	require.Equal(t, int64(0), c.CacheHits())
	require.Equal(t, int64(1), c.CacheMisses())

	c.Put("a.class", []byte("hello"))

	raw, ok := c.Get("a.class")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), raw)
	require.Equal(t, int64(1), c.CacheHits())
	require.Equal(t, int64(1), c.CacheMisses())
}

func TestBlobCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	// Capacity holds exactly two 4-byte entries.
	c := NewBlobCache(8)

	c.Put("a", []byte("aaaa"))
	c.Put("b", []byte("bbbb"))

	// Touch "a" so "b" becomes the least-recently-used entry.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", []byte("cccc"))

	_, ok = c.Get("b")
	require.False(t, ok, "b should have been evicted")

	_, ok = c.Get("a")
	require.True(t, ok, "a was recently used and should survive")

	_, ok = c.Get("c")
	require.True(t, ok, "c was just inserted and should survive")
}

func TestBlobCachePutOverwritesExistingKey(t *testing.T) {
	t.Parallel()

	c := NewBlobCache(1 << 20)

	c.Put("a", []byte("first"))
	c.Put("a", []byte("second-value"))

	raw, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, []byte("second-value"), raw)
}
