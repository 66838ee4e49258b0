package partition

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/primesplit/internal/interval"
)

func r(s, e int64) interval.Range { return interval.MustInt64(s, e) }

// assertShares compares shares against expected [start, end] pairs.
func assertShares(t *testing.T, want [][][2]int64, got []interval.Share) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Len(t, got[i], len(want[i]), "worker %d got %s", i+1, got[i])
		for j, b := range want[i] {
			assert.True(t, got[i][j].Equal(r(b[0], b[1])),
				"worker %d range %d: want (%d - %d), got %s", i+1, j, b[0], b[1], got[i][j])
		}
	}
}

// TestPartition covers the fixed scenarios, including the boundary convention.
func TestPartition(t *testing.T) {
	tests := []struct {
		name    string
		ranges  []interval.Range
		workers int
		want    [][][2]int64
	}{
		{
			name:    "single worker takes everything",
			ranges:  []interval.Range{r(1, 10)},
			workers: 1,
			want:    [][][2]int64{{{1, 10}}},
		},
		{
			name:    "earlier worker keeps boundary point",
			ranges:  []interval.Range{r(1, 10)},
			workers: 2,
			want:    [][][2]int64{{{1, 6}}, {{7, 10}}},
		},
		{
			name:    "more workers than work",
			ranges:  []interval.Range{r(0, 1)},
			workers: 3,
			want:    [][][2]int64{{{0, 1}}, {}, {}},
		},
		{
			name:    "whole ranges then split",
			ranges:  []interval.Range{r(1, 10), r(20, 24)},
			workers: 3,
			want:    [][][2]int64{{{1, 6}}, {{7, 10}, {20, 22}}, {{23, 24}}},
		},
		{
			name:    "zero remainder yields single point",
			ranges:  []interval.Range{r(0, 5), r(10, 20)},
			workers: 3,
			want:    [][][2]int64{{{0, 5}, {10, 10}}, {{11, 16}}, {{17, 20}}},
		},
		{
			name:    "single point ranges",
			ranges:  []interval.Range{r(5, 5), r(7, 7)},
			workers: 2,
			want:    [][][2]int64{{{5, 5}, {7, 7}}, {}},
		},
		{
			name:    "no ranges",
			ranges:  nil,
			workers: 2,
			want:    [][][2]int64{{}, {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Partition(tt.ranges, tt.workers)
			require.NoError(t, err)
			assertShares(t, tt.want, shares)
			for _, s := range shares {
				assert.NotNil(t, s)
			}
		})
	}
}

// TestPartitionInvalidWorkerCount rejects zero and negative worker counts.
func TestPartitionInvalidWorkerCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := Partition([]interval.Range{r(1, 5), r(10, 15)}, n)
		assert.True(t, errors.Is(err, ErrInvalidWorkerCount), "workers %d: %v", n, err)
	}
}

// TestPartitionDoesNotMutateInput guards against the split leaking back
// into the caller's slice.
func TestPartitionDoesNotMutateInput(t *testing.T) {
	in := []interval.Range{r(1, 100), r(200, 300)}
	_, err := Partition(in, 7)
	require.NoError(t, err)
	assert.True(t, in[0].Equal(r(1, 100)))
	assert.True(t, in[1].Equal(r(200, 300)))
}

// TestPartitionProperties checks completeness, disjointness, share count and
// the balance bound over randomly generated inputs.
func TestPartitionProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1380))

	for iter := 0; iter < 300; iter++ {
		var ranges []interval.Range
		cursor := int64(rng.Intn(5))
		for n := rng.Intn(6); n > 0; n-- {
			start := cursor + int64(rng.Intn(10))
			end := start + int64(rng.Intn(40))
			ranges = append(ranges, r(start, end))
			cursor = end + 1
		}
		workers := 1 + rng.Intn(12)

		shares, err := Partition(ranges, workers)
		require.NoError(t, err)
		require.Len(t, shares, workers)

		want := points(ranges)
		var got []int64
		target := Target(interval.TotalCount(ranges), workers)
		for i, s := range shares {
			assert.LessOrEqual(t, s.Size().Cmp(target), 0,
				"iteration %d: worker %d size %s exceeds %s", iter, i+1, s.Size(), target)
			got = append(got, points(s)...)
		}
		// Ordered, so equality also proves there are no duplicates.
		assert.Equal(t, want, got, "iteration %d: %v over %d workers", iter, ranges, workers)
	}
}

// TestPartitionLargeBounds exercises values beyond 64 bits.
func TestPartitionLargeBounds(t *testing.T) {
	base, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
	end := new(big.Int).Add(base, big.NewInt(99))
	big1, err := interval.New(base, end)
	require.NoError(t, err)

	shares, err := Partition([]interval.Range{big1}, 4)
	require.NoError(t, err)
	require.Len(t, shares, 4)

	total := new(big.Int)
	for _, s := range shares {
		total.Add(total, s.Points())
	}
	assert.Equal(t, int64(100), total.Int64())
	assert.Equal(t, 0, shares[0][0].Start().Cmp(base))
	assert.Equal(t, 0, shares[3][len(shares[3])-1].End().Cmp(end))
}

func TestTarget(t *testing.T) {
	assert.Equal(t, int64(5), Target(big.NewInt(9), 2).Int64())
	assert.Equal(t, int64(3), Target(big.NewInt(9), 3).Int64())
	assert.Equal(t, int64(0), Target(big.NewInt(0), 4).Int64())
	assert.Equal(t, int64(1), Target(big.NewInt(1), 3).Int64())
}

func TestReport(t *testing.T) {
	shares, err := Partition([]interval.Range{r(1, 10)}, 2)
	require.NoError(t, err)

	out := Report(shares)
	assert.Contains(t, out, "Machine Identification Number: 1\nSet of ranges: { (1 - 6) }\nCount: 5\n")
	assert.Contains(t, out, "Machine Identification Number: 2\nSet of ranges: { (7 - 10) }\nCount: 3\n")

	summaries := Describe(shares)
	require.Len(t, summaries, 2)
	assert.Equal(t, 2, summaries[1].Worker)
	assert.Equal(t, int64(3), summaries[1].Size.Int64())
}

func points(ranges []interval.Range) []int64 {
	var out []int64
	for _, rg := range ranges {
		for i := rg.Start().Int64(); i <= rg.End().Int64(); i++ {
			out = append(out, i)
		}
	}
	return out
}
