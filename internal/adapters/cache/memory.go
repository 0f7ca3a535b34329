package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"feedthread/internal/domain"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = time.Minute

// MemoryCache is an in-memory cache of collected tweets with TTL support.
type MemoryCache struct {
	tweets sync.Map
	ttl    time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// cacheEntry holds a cached tweet with expiration metadata.
type cacheEntry struct {
	tweet       *domain.TweetData
	expiresAt   time.Time
	collectedAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the specified TTL.
// Close stops the background sweep.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go cache.cleanup(cleanupInterval)
	return cache
}

// NormalizedKey returns the cache key for a tweet: /{username}/status/{id}.
// Handles are case-insensitive on X, so the username is lowercased.
func NormalizedKey(username, tweetID string) string {
	return fmt.Sprintf("/%s/status/%s", strings.ToLower(username), tweetID)
}

// Get retrieves a tweet from the cache.
// Returns the tweet and true if found and not expired, otherwise nil and false.
func (c *MemoryCache) Get(username, tweetID string) (*domain.TweetData, bool) {
	key := NormalizedKey(username, tweetID)
	value, ok := c.tweets.Load(key)
	if !ok {
		return nil, false
	}

	entry := value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.tweets.Delete(key)
		return nil, false
	}

	return entry.tweet, true
}

// Set stores a tweet in the cache with the configured TTL.
func (c *MemoryCache) Set(username, tweetID string, tweet *domain.TweetData) {
	now := time.Now()
	c.tweets.Store(NormalizedKey(username, tweetID), &cacheEntry{
		tweet:       tweet,
		expiresAt:   now.Add(c.ttl),
		collectedAt: now,
	})
}

// Len returns the number of entries, expired ones included until swept.
func (c *MemoryCache) Len() int {
	n := 0
	c.tweets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the background sweep. The cache stays usable.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries from the cache.
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

func (c *MemoryCache) sweep(now time.Time) {
	c.tweets.Range(func(key, value any) bool {
		if now.After(value.(*cacheEntry).expiresAt) {
			c.tweets.Delete(key)
		}
		return true
	})
}
