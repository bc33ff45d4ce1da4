// Package cache provides a sharded in-memory price cache with explicit TTL
// semantics. The process owns exactly one instance and hands it to every
// consumer at construction; there is no package-level state.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// PriceCache maps symbols to their most recent price.
type PriceCache struct {
	ttl    time.Duration
	shards [numShards]*shard
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

type entry struct {
	price     float64
	updatedAt time.Time
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *PriceCache {
	c := &PriceCache{ttl: ttl}
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]entry)}
	}
	return c
}

func (c *PriceCache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores a price for a symbol.
func (c *PriceCache) Set(symbol string, price float64) {
	s := c.shardFor(symbol)
	s.mu.Lock()
	s.items[symbol] = entry{price: price, updatedAt: time.Now()}
	s.mu.Unlock()
}

// Get returns the cached price if it is still within the TTL.
func (c *PriceCache) Get(symbol string) (float64, bool) {
	s := c.shardFor(symbol)
	s.mu.RLock()
	e, ok := s.items[symbol]
	s.mu.RUnlock()
	if !ok || time.Since(e.updatedAt) > c.ttl {
		return 0, false
	}
	return e.price, true
}

// Snapshot returns all live entries, for observability endpoints.
func (c *PriceCache) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	for _, s := range c.shards {
		s.mu.RLock()
		for sym, e := range s.items {
			if time.Since(e.updatedAt) <= c.ttl {
				out[sym] = e.price
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// Cleanup removes expired entries and reports how many were dropped.
func (c *PriceCache) Cleanup() int {
	cutoff := time.Now().Add(-c.ttl)
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for sym, e := range s.items {
			if e.updatedAt.Before(cutoff) {
				delete(s.items, sym)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
