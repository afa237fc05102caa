package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the in-process tier with LRU eviction. It holds recently
// used transcripts so switching back to a track never touches the disk.
type MemoryCache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.RWMutex
	stats Stats
}

type memoryEntry struct {
	key   string
	value []byte
	size  int64
	added time.Time
}

// NewMemoryCache creates a memory cache with the given capacity in bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a value and marks it most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return elem.Value.(*memoryEntry).value, true
}

// Put stores a value, evicting least recently used entries as needed.
func (c *MemoryCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))
	if valueSize > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		c.size += valueSize - entry.size
		entry.value = value
		entry.size = valueSize
		entry.added = time.Now()
		// Growing an entry in place can overshoot capacity; evict from the
		// back until it fits again. The updated entry sits at the front.
		for c.size > c.capacity && c.eviction.Len() > 1 {
			c.evictOldest()
		}
		c.stats.Size = c.size
		return nil
	}

	for c.size+valueSize > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&memoryEntry{
		key:   key,
		value: value,
		size:  valueSize,
		added: time.Now(),
	})
	c.items[key] = elem
	c.size += valueSize
	c.stats.Size = c.size
	return nil
}

// Delete removes an entry. Deleting a missing key is a no-op.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
	return nil
}

// Size returns the current size in bytes.
func (c *MemoryCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Contains reports whether a key is cached without touching LRU order.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return ok
}

// Stats returns a snapshot of the cache counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *MemoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= entry.size
}
