package goldbach

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldbach-research/goldbach-hunter/internal/primes"
)

func isPrimeTable(limit uint64) []bool {
	table := make([]bool, limit+1)
	for _, p := range primes.SimpleSieve(limit) {
		table[p] = true
	}
	return table
}

func tableOracle(t *testing.T, limit uint64) *primes.Oracle {
	t.Helper()
	path := filepath.Join(t.TempDir(), primes.DefaultTableFile)
	src := primes.NewTableSource(primes.NewTable(), path, true, primes.GenerateOptions{Limit: limit}, nil)
	require.NoError(t, src.EnsureCovered(context.Background(), limit))
	return primes.NewOracle(primes.NewCache(), src, primes.DefaultWitnesses)
}

func TestFindPairEveryEvenNumber(t *testing.T) {
	const limit = 100000
	reference := isPrimeTable(limit)

	searchers := map[string]*Searcher{
		"table":        NewSearcher(tableOracle(t, limit), nil, 0),
		"miller-rabin": NewSearcher(primes.NewOracle(primes.NewCache(), nil, primes.DefaultWitnesses), nil, 0),
	}

	for name, s := range searchers {
		t.Run(name, func(t *testing.T) {
			for n := uint64(4); n <= limit; n += 2 {
				p, ok := s.FindPair(n)
				if !ok {
					t.Fatalf("FindPair(%d) found no pair", n)
				}
				if p > n/2 || !reference[p] || !reference[n-p] {
					t.Fatalf("FindPair(%d) = %d, not a valid Goldbach pair", n, p)
				}
			}
		})
	}
}

func TestFindPairReturnsSmallestPrime(t *testing.T) {
	s := NewSearcher(tableOracle(t, 1000), nil, 0)

	tests := []struct {
		n, p uint64
	}{
		{4, 2},
		{6, 3},
		{8, 3},
		{28, 5},
		{100, 3},
		{98, 19},
		{128, 19},
	}
	for _, tt := range tests {
		p, ok := s.FindPair(tt.n)
		assert.True(t, ok, "n=%d", tt.n)
		assert.Equal(t, tt.p, p, "n=%d", tt.n)
	}
}

func TestFindPairRejectsOddAndSmallInput(t *testing.T) {
	s := NewSearcher(primes.NewOracle(nil, nil, 0), nil, 0)
	for _, n := range []uint64{0, 1, 2, 3, 5, 99, 1001} {
		_, ok := s.FindPair(n)
		assert.False(t, ok, "n=%d", n)
	}
}

func TestFindPairFallsBackBeyondCoverage(t *testing.T) {
	src := primes.NewIncrementalSource(primes.NewIncrementalList(nil, 0))
	require.NoError(t, src.EnsureCovered(context.Background(), 100))
	s := NewSearcher(primes.NewOracle(primes.NewCache(), src, len(primes.Witnesses)), nil, 0)

	for _, n := range []uint64{1_000_000, 4294967294, 1 << 40, 1<<62 + 2} {
		p, ok := s.FindPair(n)
		require.True(t, ok, "n=%d", n)
		assert.LessOrEqual(t, p, n/2)
		assert.True(t, primes.MillerRabin(p, len(primes.Witnesses)))
		assert.True(t, primes.MillerRabin(n-p, len(primes.Witnesses)))
	}
}

func TestFindPairLogsSlowSearch(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	s := NewSearcher(primes.NewOracle(nil, nil, 0), logger, time.Nanosecond)

	_, ok := s.FindPair(1_000_000)
	require.True(t, ok)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Slow Goldbach pair search", entry.Message)
	assert.Equal(t, uint64(1_000_000), entry.Data["n"])
}

func TestPairFinderFunc(t *testing.T) {
	var f PairFinder = PairFinderFunc(func(n uint64) (uint64, bool) {
		return n / 2, n == 10
	})
	p, ok := f.FindPair(10)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), p)
}
