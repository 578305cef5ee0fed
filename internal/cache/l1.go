package cache

import (
	"container/list"
	"sync"
	"time"
)

// l1Entry is one resident cache entry
type l1Entry struct {
	key       string
	value     []byte
	tags      []string
	expiresAt time.Time
	element   *list.Element
}

// L1Cache is the in-process tier: LRU by recency with an entry-count
// cap and a total-bytes cap, per-entry TTL and tag indexing
type L1Cache struct {
	mu         sync.Mutex
	entries    map[string]*l1Entry
	byTag      map[string]map[string]struct{}
	order      *list.List // front = most recent
	maxEntries int
	maxBytes   int64
	usedBytes  int64

	hits   int64
	misses int64
}

// NewL1Cache creates the in-process tier
func NewL1Cache(maxEntries int, maxBytes int64) *L1Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if maxBytes <= 0 {
		maxBytes = 100 * 1024 * 1024
	}
	return &L1Cache{
		entries:    make(map[string]*l1Entry),
		byTag:      make(map[string]map[string]struct{}),
		order:      list.New(),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// Get returns the value for key, or nil on miss or expiry
func (c *L1Cache) Get(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(entry)
		c.misses++
		return nil
	}

	c.order.MoveToFront(entry.element)
	c.hits++
	return entry.value
}

// Set stores a value with its TTL and tags, evicting old entries as
// needed to honor the caps
func (c *L1Cache) Set(key string, value []byte, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.removeLocked(existing)
	}

	// A value larger than the whole tier is not cacheable
	if int64(len(value)) > c.maxBytes {
		return
	}

	entry := &l1Entry{
		key:       key,
		value:     value,
		tags:      tags,
		expiresAt: time.Now().Add(ttl),
	}
	entry.element = c.order.PushFront(entry)
	c.entries[key] = entry
	c.usedBytes += int64(len(value))
	for _, tag := range tags {
		if c.byTag[tag] == nil {
			c.byTag[tag] = make(map[string]struct{})
		}
		c.byTag[tag][key] = struct{}{}
	}

	for (len(c.entries) > c.maxEntries || c.usedBytes > c.maxBytes) && c.order.Len() > 1 {
		oldest := c.order.Back()
		c.removeLocked(oldest.Value.(*l1Entry))
	}
}

// Delete removes a single key
func (c *L1Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		c.removeLocked(entry)
	}
}

// InvalidateByTags removes every entry carrying any of the tags and
// returns the number removed
func (c *L1Cache) InvalidateByTags(tags []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, tag := range tags {
		for key := range c.byTag[tag] {
			if entry, ok := c.entries[key]; ok {
				c.removeLocked(entry)
				removed++
			}
		}
	}
	return removed
}

// removeLocked unlinks an entry; caller holds the mutex
func (c *L1Cache) removeLocked(entry *l1Entry) {
	delete(c.entries, entry.key)
	c.order.Remove(entry.element)
	c.usedBytes -= int64(len(entry.value))
	for _, tag := range entry.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, entry.key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}

// Stats reports tier occupancy and hit rates
type Stats struct {
	Entries   int   `json:"entries"`
	UsedBytes int64 `json:"used_bytes"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

// Stats returns current statistics
func (c *L1Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		UsedBytes: c.usedBytes,
		Hits:      c.hits,
		Misses:    c.misses,
	}
}
