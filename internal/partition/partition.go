package partition

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/dreamware/primesplit/internal/interval"
)

// ErrInvalidWorkerCount is returned when a job asks for fewer than one worker.
var ErrInvalidWorkerCount = errors.New("invalid worker count")

// Partition splits ranges into exactly workerCount contiguous shares whose
// sizes never exceed ceil(total / workerCount).
//
// Ranges are consumed in order. A worker takes whole ranges while they fit
// under the target; the first range that does not fit is cut with
// interval.Split so that the worker reaches the target exactly, and the
// remainder is handed to the next worker. The earlier worker keeps the
// boundary point. Workers left without work receive an empty share.
//
// The input slice is not modified.
//
// Example:
//
//	shares, _ := Partition([]interval.Range{interval.MustInt64(1, 10)}, 2)
//	// shares[0] = {(1 - 6)}, shares[1] = {(7 - 10)}
func Partition(ranges []interval.Range, workerCount int) ([]interval.Share, error) {
	if workerCount <= 0 {
		return nil, errors.Wrapf(ErrInvalidWorkerCount, "got %d, need at least 1", workerCount)
	}

	target := Target(interval.TotalCount(ranges), workerCount)
	pending := append([]interval.Range(nil), ranges...)
	shares := make([]interval.Share, workerCount)

	for w := range shares {
		share := interval.Share{}
		running := new(big.Int)

		for len(pending) > 0 {
			r := pending[0]
			next := new(big.Int).Add(running, r.Count())
			if next.Cmp(target) <= 0 {
				share = append(share, r)
				running = next
				pending = pending[1:]
				continue
			}

			// r is larger than what is left of the target, so
			// 0 <= target-running < r.Count() and both halves exist.
			head, tail, err := interval.Split(r, new(big.Int).Sub(target, running))
			if err != nil {
				return nil, errors.Wrapf(err, "splitting %s for worker %d", r, w+1)
			}
			share = append(share, head)
			pending[0] = tail
			break
		}

		shares[w] = share
	}

	// A worker that ends on a split removes target+1 from the remaining
	// size, so after workerCount-1 workers the rest fits under the target
	// and the last worker always drains pending.
	return shares, nil
}

// Target returns ceil(total / workerCount), the most size any one share may
// receive. workerCount must be positive.
func Target(total *big.Int, workerCount int) *big.Int {
	n := big.NewInt(int64(workerCount))
	q, m := new(big.Int).QuoRem(total, n, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// Summary describes what one worker was given.
type Summary struct {
	Size   *big.Int       `json:"size"`
	Ranges interval.Share `json:"ranges"`
	Worker int            `json:"worker"`
}

// Describe summarises shares for logging and reporting. Workers are
// numbered from 1.
func Describe(shares []interval.Share) []Summary {
	out := make([]Summary, len(shares))
	for i, s := range shares {
		out[i] = Summary{Worker: i + 1, Ranges: s, Size: s.Size()}
	}
	return out
}

// Report renders the distribution of shares as human readable text. It is
// a diagnostic only.
func Report(shares []interval.Share) string {
	var b strings.Builder
	for _, s := range Describe(shares) {
		fmt.Fprintf(&b, "Machine Identification Number: %d\n", s.Worker)
		b.WriteString("Set of ranges: {")
		for _, r := range s.Ranges {
			fmt.Fprintf(&b, " %s ", r)
		}
		b.WriteString("}\n")
		fmt.Fprintf(&b, "Count: %s\n\n", s.Size)
	}
	return b.String()
}
