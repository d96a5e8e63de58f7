package primes

import "errors"

var (
	ErrTableUnsorted      = errors.New("prime table is not strictly ascending")
	ErrTableValueTooLarge = errors.New("prime table value exceeds 2^32-1")
	ErrTableEmpty         = errors.New("prime table is empty")
)
