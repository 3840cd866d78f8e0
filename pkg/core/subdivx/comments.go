package subdivx

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/angelospk/subdivx-dl/internal/constants"
)

type commentEntry struct {
	comments []string
	seq      uint64
}

// CommentCache keeps fetched comments per subtitle id for a short time. It
// never holds more entries than its capacity (the current page size).
type CommentCache struct {
	mu       sync.Mutex
	items    *cache.Cache
	capacity int
	seq      uint64
}

// NewCommentCache creates a cache. A ttl of zero selects the default.
func NewCommentCache(ttl time.Duration, capacity int) *CommentCache {
	if ttl <= 0 {
		ttl = constants.DefaultCommentTTL
	}
	return &CommentCache{
		items:    cache.New(ttl, 0),
		capacity: capacity,
	}
}

// Get returns the cached comments for id if still fresh.
func (c *CommentCache) Get(id string) ([]string, bool) {
	v, ok := c.items.Get(id)
	if !ok {
		return nil, false
	}
	return v.(commentEntry).comments, true
}

// Put stores comments for id. When the cache is full, expired entries are
// dropped first and then the oldest entry is evicted.
func (c *CommentCache) Put(id string, comments []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items.Get(id); !exists && c.capacity > 0 && c.items.ItemCount() >= c.capacity {
		c.items.DeleteExpired()
		for c.items.ItemCount() >= c.capacity {
			c.evictOldest()
		}
	}
	c.seq++
	c.items.Set(id, commentEntry{comments: comments, seq: c.seq}, cache.DefaultExpiration)
}

// SetCapacity changes the bound, evicting the oldest entries if needed.
func (c *CommentCache) SetCapacity(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = n
	if n <= 0 {
		return
	}
	c.items.DeleteExpired()
	for c.items.ItemCount() > n {
		c.evictOldest()
	}
}

// Len returns the number of entries, expired or not.
func (c *CommentCache) Len() int {
	return c.items.ItemCount()
}

func (c *CommentCache) evictOldest() {
	var (
		oldestKey string
		oldest    cache.Item
		found     bool
	)
	for k, item := range c.items.Items() {
		if !found || older(item, oldest) {
			oldestKey, oldest, found = k, item, true
		}
	}
	if !found {
		// Only expired entries were left.
		c.items.Flush()
		return
	}
	c.items.Delete(oldestKey)
}

func older(a, b cache.Item) bool {
	if a.Expiration != b.Expiration {
		return a.Expiration < b.Expiration
	}
	return a.Object.(commentEntry).seq < b.Object.(commentEntry).seq
}
