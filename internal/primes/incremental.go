package primes

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// trialDivisionLimit is the bound up to which Extend uses trial division
// instead of the segmented sieve.
const trialDivisionLimit = 1000

// IncrementalList is a growing, sorted list holding exactly the primes in
// [2, LastSievedLimit]. It only ever appends larger primes.
type IncrementalList struct {
	mu          sync.Mutex
	primes      []uint64
	lastSieved  uint64
	segmentSize uint64
	cache       *Cache
}

// NewIncrementalList returns an empty list. Newly found primes are mirrored
// into cache when it is non-nil.
func NewIncrementalList(cache *Cache, segmentSize uint64) *IncrementalList {
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	return &IncrementalList{
		lastSieved:  1,
		segmentSize: segmentSize,
		cache:       cache,
	}
}

// Extend grows the list until it covers [2, upTo]. Calling it with a bound
// already covered does nothing. On cancellation the list keeps every window
// completed so far.
func (l *IncrementalList) Extend(ctx context.Context, upTo uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extendLocked(ctx, upTo)
}

func (l *IncrementalList) extendLocked(ctx context.Context, upTo uint64) error {
	if upTo <= l.lastSieved {
		return nil
	}

	if upTo <= trialDivisionLimit {
		l.trialDivide(upTo)
		return nil
	}

	// The sieve needs every prime up to sqrt(upTo) as a seed.
	if err := l.extendLocked(ctx, ISqrt(upTo)); err != nil {
		return err
	}

	seedCount, _ := slices.BinarySearch(l.primes, ISqrt(upTo)+1)
	seeds := l.primes[:seedCount:seedCount]

	return SegmentedSieve(ctx, l.lastSieved+1, upTo, seeds, l.segmentSize, func(lo, hi uint64, found []uint64) error {
		l.primes = append(l.primes, found...)
		l.lastSieved = hi
		if l.cache != nil {
			l.cache.StorePrimes(found)
		}
		return nil
	})
}

func (l *IncrementalList) trialDivide(upTo uint64) {
	first := len(l.primes)
	for c := l.lastSieved + 1; c <= upTo; c++ {
		if c < 2 {
			continue
		}
		prime := true
		for _, p := range l.primes {
			if p*p > c {
				break
			}
			if c%p == 0 {
				prime = false
				break
			}
		}
		if prime {
			l.primes = append(l.primes, c)
		}
	}
	l.lastSieved = upTo
	if l.cache != nil {
		l.cache.StorePrimes(l.primes[first:])
	}
}

// Snapshot returns the current primes and the bound they cover. The slice is
// shared: callers must not modify it, and it stays valid after later Extends.
func (l *IncrementalList) Snapshot() ([]uint64, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.primes[:len(l.primes):len(l.primes)], l.lastSieved
}

func (l *IncrementalList) LastSievedLimit() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSieved
}

func (l *IncrementalList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.primes)
}

// Reset empties the list.
func (l *IncrementalList) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.primes = nil
	l.lastSieved = 1
}

// ==================== INCREMENTAL SOURCE ====================

// IncrementalSource serves primality from an IncrementalList.
type IncrementalSource struct {
	list *IncrementalList
}

func NewIncrementalSource(list *IncrementalList) *IncrementalSource {
	return &IncrementalSource{list: list}
}

func (s *IncrementalSource) Name() string { return "incremental" }

func (s *IncrementalSource) Reset() { s.list.Reset() }

func (s *IncrementalSource) List() *IncrementalList { return s.list }

func (s *IncrementalSource) EnsureCovered(ctx context.Context, bound uint64) error {
	return s.list.Extend(ctx, bound)
}

func (s *IncrementalSource) Lookup(n uint64) (prime, covered bool) {
	ps, limit := s.list.Snapshot()
	if n > limit {
		return false, false
	}
	_, found := slices.BinarySearch(ps, n)
	return found, true
}

func (s *IncrementalSource) PrimesUpTo(bound uint64) (iter.Seq[uint64], bool) {
	ps, limit := s.list.Snapshot()
	if bound > limit {
		return nil, false
	}
	i, found := slices.BinarySearch(ps, bound)
	if found {
		i++
	}
	return ascending(ps[:i]), true
}

func (s *IncrementalSource) Len() int { return s.list.Len() }
