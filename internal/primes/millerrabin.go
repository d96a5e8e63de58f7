package primes

import "math/bits"

// Witnesses is the fixed Miller-Rabin base set. Using all of them is
// deterministic for every n below 3.3e24.
var Witnesses = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// DefaultWitnesses is the number of bases tried when none is configured.
// The first five bases are exact for n < 2,152,302,898,747.
const DefaultWitnesses = 5

func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}

func powMod(base, exp, m uint64) uint64 {
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}

// MillerRabin tests n against the first min(k, 12) witnesses. k below one is
// treated as one.
func MillerRabin(n uint64, k int) bool {
	switch {
	case n < 2:
		return false
	case n < 4:
		return true
	case n%2 == 0:
		return false
	}

	if k < 1 {
		k = 1
	}
	if k > len(Witnesses) {
		k = len(Witnesses)
	}

	// n-1 = 2^r * d with d odd
	d := n - 1
	r := bits.TrailingZeros64(d)
	d >>= uint(r)

	for _, a := range Witnesses[:k] {
		if a >= n {
			continue
		}
		x := powMod(a, d, n)
		if x == 1 || x == n-1 {
			continue
		}
		composite := true
		for i := 1; i < r; i++ {
			x = mulMod(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}
