package interval

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies construction-time validation of range bounds.
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		start   int64
		end     int64
		wantErr bool
	}{
		{name: "single point", start: 5, end: 5},
		{name: "zero start", start: 0, end: 10},
		{name: "negative start", start: -1, end: 5, wantErr: true},
		{name: "end before start", start: 10, end: 9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewInt64(tt.start, tt.end)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRange), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.Start().Int64())
			assert.Equal(t, tt.end, r.End().Int64())
		})
	}
}

// TestNewCopiesBounds ensures a range does not alias the caller's integers.
func TestNewCopiesBounds(t *testing.T) {
	start, end := big.NewInt(1), big.NewInt(10)
	r, err := New(start, end)
	require.NoError(t, err)

	start.SetInt64(7)
	end.SetInt64(8)
	assert.Equal(t, "(1 - 10)", r.String())

	r.Start().SetInt64(100)
	assert.Equal(t, int64(1), r.Start().Int64())
}

// TestCountAndPoints checks both size measures.
func TestCountAndPoints(t *testing.T) {
	r := MustInt64(1, 10)
	assert.Equal(t, int64(9), r.Count().Int64())
	assert.Equal(t, int64(10), r.Points().Int64())

	p := MustInt64(4, 4)
	assert.Equal(t, int64(0), p.Count().Int64())
	assert.Equal(t, int64(1), p.Points().Int64())
}

// TestSplit verifies that the boundary point stays with the head and that
// the original range is not modified.
func TestSplit(t *testing.T) {
	r := MustInt64(10, 30)

	head, tail, err := Split(r, big.NewInt(5))
	require.NoError(t, err)
	assert.True(t, head.Equal(MustInt64(10, 15)), "head %s", head)
	assert.True(t, tail.Equal(MustInt64(16, 30)), "tail %s", tail)
	assert.True(t, r.Equal(MustInt64(10, 30)), "input mutated: %s", r)

	sum := new(big.Int).Add(head.Points(), tail.Points())
	assert.Equal(t, 0, sum.Cmp(r.Points()))
}

// TestSplitZeroOffset gives the head a single point.
func TestSplitZeroOffset(t *testing.T) {
	head, tail, err := Split(MustInt64(3, 9), big.NewInt(0))
	require.NoError(t, err)
	assert.True(t, head.Equal(MustInt64(3, 3)))
	assert.True(t, tail.Equal(MustInt64(4, 9)))
}

// TestSplitOutOfBounds rejects offsets that would leave an empty half.
func TestSplitOutOfBounds(t *testing.T) {
	r := MustInt64(3, 9)
	for _, k := range []int64{-1, 6, 7} {
		_, _, err := Split(r, big.NewInt(k))
		assert.True(t, errors.Is(err, ErrInvalidRange), "offset %d: %v", k, err)
	}
}

// TestRangeJSON covers the string wire encoding and lenient decoding.
func TestRangeJSON(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	r, err := New(huge, new(big.Int).Add(huge, big.NewInt(3)))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"123456789012345678901234567890","end":"123456789012345678901234567893"}`, string(data))

	var decoded Range
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(r))

	require.NoError(t, json.Unmarshal([]byte(`{"start": 2, "end": "7"}`), &decoded))
	assert.True(t, decoded.Equal(MustInt64(2, 7)))

	err = json.Unmarshal([]byte(`{"start": "9", "end": "7"}`), &decoded)
	assert.True(t, errors.Is(err, ErrInvalidRange), "got %v", err)

	err = json.Unmarshal([]byte(`{"start": "abc", "end": "7"}`), &decoded)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidRange))
}

// TestShareSize sums sizes across ranges.
func TestShareSize(t *testing.T) {
	s := Share{MustInt64(1, 5), MustInt64(10, 15)}
	assert.Equal(t, int64(9), s.Size().Int64())
	assert.Equal(t, int64(11), s.Points().Int64())
	assert.Equal(t, "{(1 - 5) (10 - 15)}", s.String())
	assert.True(t, Share{}.Empty())
	assert.Equal(t, int64(0), TotalCount(nil).Int64())
}
