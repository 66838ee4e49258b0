// Package primality counts primes inside the ranges assigned to a worker.
//
// The test is plain trial division: n is prime when n > 1 and no j in
// [2, n/2] divides n. IsPrime is the only place that knows how primality is
// decided, so it can be replaced with a sieve or a probabilistic test
// without touching partitioning or aggregation.
package primality

import (
	"context"
	"math/big"

	"github.com/dreamware/primesplit/internal/interval"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// IsPrime reports whether n is prime using trial division up to n/2.
func IsPrime(n *big.Int) bool {
	if n.Cmp(one) <= 0 {
		return false
	}
	if n.IsUint64() {
		return isPrimeUint64(n.Uint64())
	}

	half := new(big.Int).Quo(n, two)
	rem := new(big.Int)
	for j := big.NewInt(2); j.Cmp(half) <= 0; j.Add(j, one) {
		if rem.Rem(n, j).Sign() == 0 {
			return false
		}
	}
	return true
}

// isPrimeUint64 is IsPrime on machine words. Same bound, same answers.
func isPrimeUint64(n uint64) bool {
	if n <= 1 {
		return false
	}
	half := n / 2
	for j := uint64(2); j <= half; j++ {
		if n%j == 0 {
			return false
		}
	}
	return true
}

// CountPrimes returns how many primes the share holds. Both ends of each
// range are inclusive. The only error is ctx's, checked between candidates.
func CountPrimes(ctx context.Context, share interval.Share) (*big.Int, error) {
	count := new(big.Int)
	for _, r := range share {
		end := r.End()
		for i := r.Start(); i.Cmp(end) <= 0; i.Add(i, one) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if IsPrime(i) {
				count.Add(count, one)
			}
		}
	}
	return count, nil
}
