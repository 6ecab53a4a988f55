// Package cache holds recently computed price quotes for a fixed TTL.
package cache

import (
	"sync"
	"time"

	"github.com/fairyhunter13/flight-pricing-engine/internal/model"
)

type entry struct {
	payload   model.PricingResponse
	expiresAt time.Time
}

// Stats are lookup counters since construction.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Expired uint64 `json:"expired"`
	Entries int    `json:"entries"`
}

// HitRate returns hits over all lookups, or 0 with no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses + s.Expired
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// PriceCache maps a request key to a computed quote until it expires.
// Expired entries are removed only when read; there is no size bound.
type PriceCache struct {
	mu    sync.Mutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time

	hits, misses, expired uint64
}

// New creates a PriceCache with the default ttl for Put.
func New(ttl time.Duration) *PriceCache {
	return &PriceCache{items: make(map[string]entry), ttl: ttl, now: time.Now}
}

// NewWithClock is New with an explicit time source.
func NewWithClock(ttl time.Duration, now func() time.Time) *PriceCache {
	c := New(ttl)
	c.now = now
	return c
}

// Result of a lookup.
type Result int

const (
	Miss    Result = iota // no entry
	Hit                   // entry still valid
	Expired               // entry found past its expiry and removed
)

// Lookup returns the stored payload if the current time is strictly before
// its expiry. An expired entry is deleted and reported as Expired.
func (c *PriceCache) Lookup(key string) (model.PricingResponse, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		c.misses++
		return model.PricingResponse{}, Miss
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		c.expired++
		return model.PricingResponse{}, Expired
	}
	c.hits++
	return e.payload, Hit
}

// Get is Lookup reduced to a found flag.
func (c *PriceCache) Get(key string) (model.PricingResponse, bool) {
	p, res := c.Lookup(key)
	return p, res == Hit
}

// Put stores payload under key for the default ttl, replacing any entry.
func (c *PriceCache) Put(key string, payload model.PricingResponse) {
	c.PutWithTTL(key, payload, c.ttl)
}

// PutWithTTL stores payload under key until now+ttl, replacing any entry.
func (c *PriceCache) PutWithTTL(key string, payload model.PricingResponse, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{payload: payload, expiresAt: c.now().Add(ttl)}
}

// Len returns the number of stored entries, expired ones included.
func (c *PriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the lookup counters.
func (c *PriceCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Expired: c.expired, Entries: len(c.items)}
}
