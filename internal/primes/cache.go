package primes

import (
	"sync"
	"sync/atomic"
)

// Cache memoizes primality results for the lifetime of a verification run.
// Entries are only ever added; Reset empties both sets. A number is never
// recorded as both prime and composite.
type Cache struct {
	mu        sync.Mutex
	prime     map[uint64]struct{}
	composite map[uint64]struct{}

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCache() *Cache {
	return &Cache{
		prime:     make(map[uint64]struct{}),
		composite: make(map[uint64]struct{}),
	}
}

// Lookup reports the cached result for n and whether there was one.
func (c *Cache) Lookup(n uint64) (prime, ok bool) {
	c.mu.Lock()
	_, isPrime := c.prime[n]
	_, isComposite := c.composite[n]
	c.mu.Unlock()

	if isPrime || isComposite {
		c.hits.Add(1)
		return isPrime, true
	}
	c.misses.Add(1)
	return false, false
}

// Store records n. A value already recorded in the opposite set is left alone.
func (c *Cache) Store(n uint64, prime bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(n, prime)
}

// StorePrimes records every value in ps as prime under a single lock.
func (c *Cache) StorePrimes(ps []uint64) {
	if len(ps) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range ps {
		c.storeLocked(p, true)
	}
}

func (c *Cache) storeLocked(n uint64, prime bool) {
	if prime {
		if _, clash := c.composite[n]; !clash {
			c.prime[n] = struct{}{}
		}
		return
	}
	if _, clash := c.prime[n]; !clash {
		c.composite[n] = struct{}{}
	}
}

// Reset drops every entry and zeroes the hit counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.prime = make(map[uint64]struct{})
	c.composite = make(map[uint64]struct{})
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Sizes returns the number of known primes and known composites.
func (c *Cache) Sizes() (primes, composites int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prime), len(c.composite)
}

func (c *Cache) Hits() uint64 { return c.hits.Load() }
func (c *Cache) Misses() uint64 { return c.misses.Load() }

func (c *Cache) HitRate() float64 {
	hits := float64(c.hits.Load())
	misses := float64(c.misses.Load())

	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
