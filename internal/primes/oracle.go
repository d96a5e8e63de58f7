package primes

// Oracle decides primality using, in order: fast paths for tiny and even
// numbers, the shared cache, the configured Source, and Miller-Rabin.
type Oracle struct {
	cache     *Cache
	source    Source
	witnesses int
}

// NewOracle builds an oracle. source may be nil, in which case every cache
// miss goes to Miller-Rabin with the given number of witnesses.
func NewOracle(cache *Cache, source Source, witnesses int) *Oracle {
	if cache == nil {
		cache = NewCache()
	}
	if witnesses <= 0 {
		witnesses = DefaultWitnesses
	}
	return &Oracle{
		cache:     cache,
		source:    source,
		witnesses: witnesses,
	}
}

func (o *Oracle) Cache() *Cache { return o.cache }
func (o *Oracle) Source() Source { return o.source }
func (o *Oracle) Witnesses() int { return o.witnesses }

// IsPrime reports whether n is prime. The result of every non-trivial query
// is recorded in the cache.
func (o *Oracle) IsPrime(n uint64) bool {
	switch {
	case n <= 1:
		return false
	case n <= 3:
		return true
	case n%2 == 0:
		return false
	}

	if prime, ok := o.cache.Lookup(n); ok {
		return prime
	}

	// The lock is not held while computing: results are deterministic, so two
	// workers racing on the same n store the same answer.
	prime, covered := false, false
	if o.source != nil {
		prime, covered = o.source.Lookup(n)
	}
	if !covered {
		prime = MillerRabin(n, o.witnesses)
	}

	o.cache.Store(n, prime)
	return prime
}
