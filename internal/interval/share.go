package interval

import (
	"math/big"
	"strings"
)

// Share is the ordered list of ranges assigned to a single worker.
type Share []Range

// Size returns the sum of Count over every range in the share.
func (s Share) Size() *big.Int {
	total := new(big.Int)
	for _, r := range s {
		total.Add(total, r.Count())
	}
	return total
}

// Points returns how many integers the share covers.
func (s Share) Points() *big.Int {
	total := new(big.Int)
	for _, r := range s {
		total.Add(total, r.Points())
	}
	return total
}

// Empty reports whether the share holds no ranges.
func (s Share) Empty() bool { return len(s) == 0 }

func (s Share) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// TotalCount sums Count over ranges.
func TotalCount(ranges []Range) *big.Int {
	return Share(ranges).Size()
}
