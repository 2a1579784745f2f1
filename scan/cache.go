package scan

import (
	"container/list"
	"sync"

	"github.com/siyangzeng/paimon-go/internal/manifest"
)

// ManifestCache memoizes decoded manifest lists and manifest files across
// scans, spec.md §4.4 step 3's "optional manifest-cache filter". Grounded
// on pebble's internal/cache (cache.go): a fixed capacity with LRU
// eviction, guarded here by one mutex. Unlike pebble's cache, manifest files are small
// metadata blobs read whole, not multi-gigabyte sstable block data, so a
// single-shard container/list LRU is enough here — the Clock-PRO algorithm
// pebble's cache runs exists to amortize cost at a scale this cache never
// sees.
type ManifestCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key      string
	lists    []manifest.ListEntry
	files    []manifest.Entry
}

// NewManifestCache returns a cache holding at most capacity manifest
// files/lists combined. capacity <= 0 disables caching.
func NewManifestCache(capacity int) *ManifestCache {
	return &ManifestCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *ManifestCache) GetList(name string) ([]manifest.ListEntry, bool) {
	if c == nil || c.capacity <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items["list:"+name]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).lists, true
}

func (c *ManifestCache) PutList(name string, entries []manifest.ListEntry) {
	if c == nil || c.capacity <= 0 {
		return
	}
	c.put("list:"+name, &cacheEntry{lists: entries})
}

func (c *ManifestCache) GetFile(name string) ([]manifest.Entry, bool) {
	if c == nil || c.capacity <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items["file:"+name]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).files, true
}

func (c *ManifestCache) PutFile(name string, entries []manifest.Entry) {
	if c == nil || c.capacity <= 0 {
		return
	}
	c.put("file:"+name, &cacheEntry{files: entries})
}

func (c *ManifestCache) put(key string, e *cacheEntry) {
	e.key = key
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	c.items[key] = c.ll.PushFront(e)
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}
