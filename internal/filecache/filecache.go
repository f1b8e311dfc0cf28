package filecache

import (
	"sync"
	"time"

	"github.com/rabbitson87/atomic-http/config"
)

// Cache keeps small, frequently served files in memory. Entries expire by
// TTL regardless of popularity, so modified files become visible without
// explicit invalidation; capacity pressure evicts the least recently
// accessed entries first.
//
// Files above the per-file cap never enter the cache and are streamed from
// disk by the caller.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	total   int64
	cfg     config.FileCache

	now func() time.Time
}

type entry struct {
	data     []byte
	added    time.Time
	accessed time.Time
}

func New(cfg config.FileCache) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Get returns the cached contents of path, if present and not expired.
func (c *Cache) Get(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[path]
	if !found {
		return nil, false
	}

	now := c.now()
	if c.cfg.TTL > 0 && now.Sub(e.added) > c.cfg.TTL {
		c.remove(path, e)
		return nil, false
	}

	e.accessed = now

	return e.data, true
}

// Put stores data under path, evicting least recently accessed entries
// until both the count and total-size caps hold. Oversized files are
// silently refused.
func (c *Cache) Put(path string, data []byte) {
	size := int64(len(data))
	if c.cfg.MaxFileSize > 0 && size > c.cfg.MaxFileSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, found := c.entries[path]; found {
		c.remove(path, old)
	}

	for len(c.entries) > 0 &&
		((c.cfg.MaxFiles > 0 && len(c.entries)+1 > c.cfg.MaxFiles) ||
			(c.cfg.MaxTotalSize > 0 && c.total+size > c.cfg.MaxTotalSize)) {
		c.evictOldest()
	}

	if c.cfg.MaxTotalSize > 0 && c.total+size > c.cfg.MaxTotalSize {
		return
	}

	now := c.now()
	c.entries[path] = &entry{
		data:     data,
		added:    now,
		accessed: now,
	}
	c.total += size
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var (
		oldestPath  string
		oldestEntry *entry
	)

	for path, e := range c.entries {
		if oldestEntry == nil || e.accessed.Before(oldestEntry.accessed) {
			oldestPath, oldestEntry = path, e
		}
	}

	if oldestEntry != nil {
		c.remove(oldestPath, oldestEntry)
	}
}

func (c *Cache) remove(path string, e *entry) {
	c.total -= int64(len(e.data))
	delete(c.entries, path)
}
