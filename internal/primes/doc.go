// Package primes decides primality of 64-bit integers for the Goldbach verifier.
//
// An Oracle answers IsPrime by consulting, in order, a shared result cache,
// a Source (a precomputed table of every prime below 2^32, or an incrementally
// sieved prime list) and finally a Miller-Rabin test over a fixed witness set.
// The package also generates and loads the flat prime table file.
package primes
