//go:build property

package primes

import (
	"context"
	"math/big"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPrimalityProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("miller-rabin with all witnesses matches math/big", prop.ForAll(
		func(n uint64) bool {
			return MillerRabin(n, len(Witnesses)) == new(big.Int).SetUint64(n).ProbablyPrime(0)
		},
		gen.UInt64(),
	))

	properties.Property("oracle is idempotent and never caches both results", prop.ForAll(
		func(ns []uint64) bool {
			oracle := NewOracle(NewCache(), nil, len(Witnesses))
			for _, n := range ns {
				if oracle.IsPrime(n) != oracle.IsPrime(n) {
					return false
				}
			}
			return len(oracle.Cache().overlap()) == 0
		},
		gen.SliceOf(gen.UInt64Range(0, 1<<40)),
	))

	properties.Property("extend equals the sieve of eratosthenes", prop.ForAll(
		func(first, second uint64) bool {
			list := NewIncrementalList(nil, 1024)
			ctx := context.Background()
			if err := list.Extend(ctx, first); err != nil {
				return false
			}
			if err := list.Extend(ctx, second); err != nil {
				return false
			}
			ps, limit := list.Snapshot()
			want := max(first, second, 1)
			return limit == want && slices.Equal(ps, SimpleSieve(want))
		},
		gen.UInt64Range(0, 60000),
		gen.UInt64Range(0, 60000),
	))

	properties.TestingRun(t)
}
