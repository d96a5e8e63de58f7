// Package goldbach verifies Goldbach's conjecture empirically over a range of
// even numbers.
//
// A Searcher finds, for one even n, a prime p <= n/2 with n-p also prime. A
// Verifier splits [start, end] into one contiguous chunk per worker, runs the
// search over every chunk concurrently, reports progress, and stops all
// workers once any of them finds an even number with no prime pair.
package goldbach
