package service

import (
	"sync"
	"time"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
)

type cacheEntry struct {
	projection *forecast.Projection
	expiresAt  time.Time
}

// projectionCache is a TTL map keyed by forecast.Key. Entries are immutable once stored.
type projectionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	entries map[string]cacheEntry
}

func newProjectionCache(ttl time.Duration, maxSize int) *projectionCache {
	return &projectionCache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *projectionCache) get(key string) (*forecast.Projection, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.projection, true
}

func (c *projectionCache) put(key string, p *forecast.Projection) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.maxSize {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		// Still full: drop everything rather than track recency
		if len(c.entries) >= c.maxSize {
			clear(c.entries)
		}
	}
	c.entries[key] = cacheEntry{projection: p, expiresAt: now.Add(c.ttl)}
}

func (c *projectionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
