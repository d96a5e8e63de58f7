package goldbach

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goldbach-research/goldbach-hunter/internal/logging"
	"github.com/goldbach-research/goldbach-hunter/internal/primes"
)

const (
	// DefaultSlowPairThreshold is how long a single search may take before
	// it is logged as slow.
	DefaultSlowPairThreshold = time.Second

	smallPrimeLimit    = 1000
	fallbackScanMargin = 1000
	fallbackReportStep = 10000
)

// PairFinder finds a Goldbach pair for a single even number. It returns the
// smaller prime of the pair and true, or false when no pair exists.
type PairFinder interface {
	FindPair(n uint64) (p uint64, ok bool)
}

// PairFinderFunc adapts a function to PairFinder.
type PairFinderFunc func(n uint64) (uint64, bool)

func (f PairFinderFunc) FindPair(n uint64) (uint64, bool) { return f(n) }

// Searcher is the PairFinder backed by a primality Oracle.
type Searcher struct {
	oracle        *primes.Oracle
	logger        logrus.FieldLogger
	slowThreshold time.Duration
	smallPrimes   []uint64
}

func NewSearcher(oracle *primes.Oracle, logger logrus.FieldLogger, slowThreshold time.Duration) *Searcher {
	if logger == nil {
		logger = logging.Discard()
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowPairThreshold
	}
	return &Searcher{
		oracle:        oracle,
		logger:        logger,
		slowThreshold: slowThreshold,
		smallPrimes:   primes.SimpleSieve(smallPrimeLimit),
	}
}

// FindPair searches the primes <= n/2 from the smallest upward. n must be even
// and at least 4; anything else has no pair.
func (s *Searcher) FindPair(n uint64) (p uint64, ok bool) {
	if n < 4 || n%2 != 0 {
		return 0, false
	}

	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed > s.slowThreshold {
			s.logger.WithFields(logrus.Fields{
				"n":       n,
				"p":       p,
				"found":   ok,
				"elapsed": elapsed.Round(time.Millisecond),
			}).Warn("Slow Goldbach pair search")
		}
	}()

	half := n / 2
	if src := s.oracle.Source(); src != nil {
		if candidates, covered := src.PrimesUpTo(half); covered {
			for q := range candidates {
				if s.oracle.IsPrime(n - q) {
					return q, true
				}
			}
			return 0, false
		}
	}
	return s.fallback(n, half, start)
}

// fallback is used when no source covers n/2: small primes first, then odd
// candidates up to min(n/2, sqrt(n)+1000).
func (s *Searcher) fallback(n, half uint64, start time.Time) (uint64, bool) {
	for _, q := range s.smallPrimes {
		if q > half {
			return 0, false
		}
		if s.oracle.IsPrime(n - q) {
			return q, true
		}
	}

	limit := min(half, primes.ISqrt(n)+fallbackScanMargin)
	first := uint64(smallPrimeLimit + 1)
	if limit < first {
		return 0, false
	}
	total := (limit-first)/2 + 1

	var checked uint64
	for c := first; c <= limit; c += 2 {
		checked++
		if checked%fallbackReportStep == 0 {
			s.logger.WithFields(logrus.Fields{
				"n":       n,
				"percent": float64(checked) / float64(total) * 100,
				"elapsed": time.Since(start).Round(time.Millisecond),
			}).Debug("Pair search progress")
		}
		if s.oracle.IsPrime(c) && s.oracle.IsPrime(n-c) {
			return c, true
		}
	}
	return 0, false
}
