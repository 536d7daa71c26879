package auth

import (
	"sync"
	"time"
)

// RetryCache counts failed login attempts per IP with a sliding TTL.
type RetryCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]*retryEntry
}

type retryEntry struct {
	count   int
	expires time.Time
}

func NewRetryCache(ttl time.Duration) *RetryCache {
	return &RetryCache{ttl: ttl, m: make(map[string]*retryEntry)}
}

// Fail records one failed attempt and returns the new count.
func (c *RetryCache) Fail(ip string) int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.m[ip]
	if e == nil || now.After(e.expires) {
		e = &retryEntry{}
		c.m[ip] = e
	}
	e.count++
	e.expires = now.Add(c.ttl)
	return e.count
}

// Count returns the live failure count for ip.
func (c *RetryCache) Count(ip string) int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.m[ip]
	if e == nil {
		return 0
	}
	if now.After(e.expires) {
		delete(c.m, ip)
		return 0
	}
	return e.count
}

// Cooldown returns how long until the ip's counter expires.
func (c *RetryCache) Cooldown(ip string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.m[ip]
	if e == nil {
		return 0
	}
	d := time.Until(e.expires)
	if d < 0 {
		return 0
	}
	return d
}

// Prune drops expired entries. Called opportunistically by the reaper.
func (c *RetryCache) Prune() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for ip, e := range c.m {
		if now.After(e.expires) {
			delete(c.m, ip)
		}
	}
}
