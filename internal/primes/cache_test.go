package primes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// overlap returns the values recorded as both prime and composite.
func (c *Cache) overlap() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var both []uint64
	for n := range c.prime {
		if _, ok := c.composite[n]; ok {
			both = append(both, n)
		}
	}
	return both
}

func TestCacheStoreAndLookup(t *testing.T) {
	c := NewCache()

	_, ok := c.Lookup(7)
	assert.False(t, ok)

	c.Store(7, true)
	c.Store(9, false)

	prime, ok := c.Lookup(7)
	assert.True(t, ok)
	assert.True(t, prime)

	prime, ok = c.Lookup(9)
	assert.True(t, ok)
	assert.False(t, prime)

	primes, composites := c.Sizes()
	assert.Equal(t, 1, primes)
	assert.Equal(t, 1, composites)
	assert.Equal(t, uint64(2), c.Hits())
	assert.Equal(t, uint64(1), c.Misses())
	assert.InDelta(t, 2.0/3.0, c.HitRate(), 1e-9)
}

func TestCacheNeverHoldsBothResults(t *testing.T) {
	c := NewCache()
	c.Store(15, false)
	c.Store(15, true)
	c.StorePrimes([]uint64{15, 17})

	prime, ok := c.Lookup(15)
	assert.True(t, ok)
	assert.False(t, prime)
	assert.Empty(t, c.overlap())

	primes, composites := c.Sizes()
	assert.Equal(t, 1, primes)
	assert.Equal(t, 1, composites)
}

func TestCacheReset(t *testing.T) {
	c := NewCache()
	c.StorePrimes([]uint64{2, 3, 5})
	c.Lookup(3)
	c.Lookup(4)

	c.Reset()

	primes, composites := c.Sizes()
	assert.Zero(t, primes)
	assert.Zero(t, composites)
	assert.Zero(t, c.Hits())
	assert.Zero(t, c.Misses())
	assert.Zero(t, c.HitRate())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for n := uint64(0); n < 2000; n++ {
				c.Store(n, MillerRabin(n, DefaultWitnesses))
				c.Lookup(n + uint64(w))
			}
		}(w)
	}
	wg.Wait()

	primes, composites := c.Sizes()
	assert.Equal(t, 303, primes)
	assert.Equal(t, 2000-303, composites)
	assert.Empty(t, c.overlap())
}
