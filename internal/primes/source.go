package primes

import (
	"context"
	"iter"
)

// Source is a backend that knows every prime up to some bound.
type Source interface {
	Name() string
	// Reset discards state that belongs to a previous run.
	Reset()
	// EnsureCovered prepares the source to answer for numbers up to bound.
	// A source may end up covering less than bound; Lookup and PrimesUpTo
	// report coverage per call.
	EnsureCovered(ctx context.Context, bound uint64) error
	// Lookup reports whether n is prime and whether the source covers n.
	Lookup(n uint64) (prime, covered bool)
	// PrimesUpTo yields the primes <= bound in ascending order. It returns
	// false when bound is not covered.
	PrimesUpTo(bound uint64) (iter.Seq[uint64], bool)
	// Len is the number of primes currently held.
	Len() int
}

// ascending yields ps widened to uint64.
func ascending[T uint32 | uint64](ps []T) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, p := range ps {
			if !yield(uint64(p)) {
				return
			}
		}
	}
}
