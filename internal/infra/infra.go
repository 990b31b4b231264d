// Package infra carries the plumbing shared by the market-data clients:
// typed TTL caches and per-provider request throttles. Every outbound call
// to Yahoo, FMP, the statement scraper, or the RSS feeds passes through
// both, so repeated dashboard loads do not turn into repeated fetches.
package infra

import (
	"context"
	"sync"
	"time"
)

// Cache is a typed in-memory TTL cache. Each client keeps one cache per
// payload kind (quotes, candle series, statement bundles, headlines), so
// lookups return concrete types and a five-minute quote can never shadow
// an hour-lived statement bundle under a recycled key.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry[V]
	defaultTTL time.Duration
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewCache creates an empty cache. defaultTTL applies to Put; PutFor sets
// a per-entry lifetime instead.
func NewCache[V any](defaultTTL time.Duration) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]cacheEntry[V]),
		defaultTTL: defaultTTL,
	}
}

// Get returns the entry under key while it is still fresh. Expired entries
// are deleted on the way out, so the map never accumulates stale payloads.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under the cache's default lifetime.
func (c *Cache[V]) Put(key string, value V) {
	c.PutFor(key, value, c.defaultTTL)
}

// PutFor stores value with its own lifetime. Statement bundles change once
// a quarter and outlive quotes by a wide margin.
func (c *Cache[V]) PutFor(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Drop removes one key, forcing the next lookup to refetch.
func (c *Cache[V]) Drop(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Throttle is a token-bucket request limiter. Each provider client owns
// one sized to what the host tolerates; the bucket refills continuously,
// with fractional tokens, and Wait sleeps exactly until the next token
// accrues rather than polling.
type Throttle struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64 // tokens per second
	last   time.Time
}

// NewThrottle allows perSecond requests per second, with bursts up to the
// same count.
func NewThrottle(perSecond int) *Throttle {
	if perSecond < 1 {
		perSecond = 1
	}
	r := float64(perSecond)
	return &Throttle{tokens: r, burst: r, rate: r, last: time.Now()}
}

// Wait consumes one token, sleeping until one accrues. It returns the
// context error if ctx ends before a token becomes available.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		t.refill()
		if t.tokens >= 1 {
			t.tokens--
			t.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - t.tokens) / t.rate * float64(time.Second))
		t.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill credits tokens for the time elapsed since the last call. Must be
// called with mu held.
func (t *Throttle) refill() {
	now := time.Now()
	t.tokens += now.Sub(t.last).Seconds() * t.rate
	if t.tokens > t.burst {
		t.tokens = t.burst
	}
	t.last = now
}
