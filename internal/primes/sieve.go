package primes

import (
	"context"
	"math"
)

// DefaultSegmentSize is the window width of the segmented sieve.
const DefaultSegmentSize = 1_000_000

// ISqrt returns floor(sqrt(n)).
func ISqrt(n uint64) uint64 {
	r := uint64(math.Sqrt(float64(n)))
	// float64 loses precision above 2^53, correct in both directions
	for r > 0 && r > n/r {
		r--
	}
	for (r+1) <= n/(r+1) {
		r++
	}
	return r
}

// SimpleSieve returns every prime <= limit in ascending order.
func SimpleSieve(limit uint64) []uint64 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	result := make([]uint64, 0, estimateCount(limit))
	for i := uint64(2); i <= limit; i++ {
		if composite[i] {
			continue
		}
		result = append(result, i)
		if i > limit/i {
			continue
		}
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return result
}

// SegmentFunc receives the primes found in one window [lo, hi].
type SegmentFunc func(lo, hi uint64, found []uint64) error

// SegmentedSieve sieves [lo, hi] in windows of segmentSize integers. seeds must
// hold, in ascending order, every prime <= ISqrt(hi). emit is called once per
// window, in order; found is reused between calls. An error from emit or a
// cancelled ctx stops the sieve.
func SegmentedSieve(ctx context.Context, lo, hi uint64, seeds []uint64, segmentSize uint64, emit SegmentFunc) error {
	if lo > hi {
		return nil
	}
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	if lo < 2 {
		lo = 2
		if lo > hi {
			return nil
		}
	}

	marks := make([]bool, segmentSize)
	found := make([]uint64, 0, segmentSize/8)

	for segLo := lo; ; {
		if err := ctx.Err(); err != nil {
			return err
		}

		segHi := hi
		if hi-segLo >= segmentSize {
			segHi = segLo + segmentSize - 1
		}
		width := segHi - segLo + 1
		window := marks[:width]
		clear(window)

		for _, p := range seeds {
			if p > segHi/p {
				break
			}
			first := p * p
			if first < segLo {
				first = (segLo + p - 1) / p * p
			}
			if first > segHi {
				continue
			}
			for j := first; ; j += p {
				window[j-segLo] = true
				if segHi-j < p {
					break
				}
			}
		}

		found = found[:0]
		for i, composite := range window {
			if !composite {
				found = append(found, segLo+uint64(i))
			}
		}
		if err := emit(segLo, segHi, found); err != nil {
			return err
		}

		if segHi == hi {
			return nil
		}
		segLo = segHi + 1
	}
}

// estimateCount is an upper bound on pi(n) used for slice capacity hints.
func estimateCount(n uint64) int {
	if n < 17 {
		return 8
	}
	f := float64(n)
	return int(1.26*f/math.Log(f)) + 1
}
