package resource

import (
	"bytes"
	"container/list"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
)

// blobEntry is one cached, lz4-compressed resource body.
type blobEntry struct {
	key        string
	compressed []byte
	rawSize    int
}

// BlobCache is a bounded, string-keyed LRU cache of resource bodies,
// compressed with lz4 to keep a whole project's worth of class/source
// bytes resident without exhausting memory on large codebases. It is
// rewritten here from the shape of a git-hash-keyed blob cache: the
// eviction policy (doubly-linked list + map, evict-from-back-on-overflow)
// is the same, the key space is plain resource-locator strings instead of
// git object hashes, and there is no Bloom-filter membership pre-check
// since nothing in this engine needs approximate membership at this scale.
// Its lifetime is bounded to a single analysis run, matching the
// classloader's own lifetime contract.
type BlobCache struct {
	mu       sync.Mutex
	capacity int
	size     int
	ll       *list.List
	index    map[string]*list.Element

	hits   atomic.Int64
	misses atomic.Int64
}

// NewBlobCache builds a cache bounded to capacityBytes of raw (uncompressed)
// content; entries are evicted least-recently-used first once exceeded.
func NewBlobCache(capacityBytes int) *BlobCache {
	return &BlobCache{
		capacity: capacityBytes,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Get returns the raw bytes previously stored under key, if present.
func (c *BlobCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses.Add(1)

		return nil, false
	}

	c.ll.MoveToFront(el)

	entry := el.Value.(*blobEntry)

	raw, err := decompress(entry.compressed, entry.rawSize)
	if err != nil {
		c.misses.Add(1)

		return nil, false
	}

	c.hits.Add(1)

	return raw, true
}

// CacheHits returns the cumulative count of Get calls that found an entry.
func (c *BlobCache) CacheHits() int64 { return c.hits.Load() }

// CacheMisses returns the cumulative count of Get calls that found nothing.
func (c *BlobCache) CacheMisses() int64 { return c.misses.Load() }

// Put stores raw under key, compressing it and evicting older entries as
// needed to respect capacity.
func (c *BlobCache) Put(key string, raw []byte) {
	compressed, err := compress(raw)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.ll.MoveToFront(el)
		old := el.Value.(*blobEntry)
		c.size -= old.rawSize
		el.Value = &blobEntry{key: key, compressed: compressed, rawSize: len(raw)}
		c.size += len(raw)
	} else {
		el := c.ll.PushFront(&blobEntry{key: key, compressed: compressed, rawSize: len(raw)})
		c.index[key] = el
		c.size += len(raw)
	}

	for c.size > c.capacity && c.ll.Len() > 0 {
		back := c.ll.Back()
		if back == nil {
			break
		}

		entry := back.Value.(*blobEntry)
		c.ll.Remove(back)
		delete(c.index, entry.key)
		c.size -= entry.rawSize
	}
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompress(compressed []byte, rawSize int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(compressed))
	out := make([]byte, rawSize)

	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}

	return out, nil
}
