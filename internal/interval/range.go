package interval

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidRange is returned when a range has a negative start or an end
// smaller than its start.
var ErrInvalidRange = errors.New("invalid range")

var one = big.NewInt(1)

// Range is a closed interval [Start, End] of non-negative integers.
// Values are arbitrary precision; a Range never shares its integers with
// another Range, so it can be handed to a worker without copying.
type Range struct {
	start *big.Int
	end   *big.Int
}

// New validates and builds a range over copies of start and end.
//
// Returns ErrInvalidRange if start < 0 or end < start.
func New(start, end *big.Int) (Range, error) {
	if start == nil || end == nil {
		return Range{}, errors.Wrap(ErrInvalidRange, "missing bound")
	}
	if start.Sign() < 0 {
		return Range{}, errors.Wrapf(ErrInvalidRange, "start %s is negative", start)
	}
	if end.Cmp(start) < 0 {
		return Range{}, errors.Wrapf(ErrInvalidRange, "end %s is before start %s", end, start)
	}
	return Range{
		start: new(big.Int).Set(start),
		end:   new(big.Int).Set(end),
	}, nil
}

// NewInt64 is New for machine-sized bounds.
func NewInt64(start, end int64) (Range, error) {
	return New(big.NewInt(start), big.NewInt(end))
}

// MustInt64 is NewInt64 that panics on invalid bounds. Intended for tests
// and literals.
func MustInt64(start, end int64) Range {
	r, err := NewInt64(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Start returns a copy of the lower bound.
func (r Range) Start() *big.Int { return new(big.Int).Set(r.start) }

// End returns a copy of the upper bound.
func (r Range) End() *big.Int { return new(big.Int).Set(r.end) }

// Count returns End - Start, the size used to balance work between workers.
// It is one less than the number of integers the range holds.
func (r Range) Count() *big.Int {
	if r.start == nil {
		return new(big.Int)
	}
	return new(big.Int).Sub(r.end, r.start)
}

// Points returns the number of integers in the range, End - Start + 1.
func (r Range) Points() *big.Int {
	if r.start == nil {
		return new(big.Int)
	}
	c := r.Count()
	return c.Add(c, one)
}

// IsZero reports whether r is the zero Range value (never produced by New).
func (r Range) IsZero() bool { return r.start == nil }

// Equal reports whether both ranges have the same bounds.
func (r Range) Equal(o Range) bool {
	if r.IsZero() || o.IsZero() {
		return r.IsZero() == o.IsZero()
	}
	return r.start.Cmp(o.start) == 0 && r.end.Cmp(o.end) == 0
}

// Split cuts r after offset k: head is [s, s+k] and tail is [s+k+1, e].
// The boundary point s+k belongs to head only. k must satisfy
// 0 <= k < r.Count() so that both halves are non-empty.
// r is left untouched.
func Split(r Range, k *big.Int) (head, tail Range, err error) {
	if r.IsZero() {
		return Range{}, Range{}, errors.Wrap(ErrInvalidRange, "split of empty range")
	}
	if k.Sign() < 0 || k.Cmp(r.Count()) >= 0 {
		return Range{}, Range{}, errors.Wrapf(ErrInvalidRange, "split offset %s outside %s", k, r)
	}
	mid := new(big.Int).Add(r.start, k)
	head = Range{start: new(big.Int).Set(r.start), end: mid}
	tail = Range{start: new(big.Int).Add(mid, one), end: new(big.Int).Set(r.end)}
	return head, tail, nil
}

func (r Range) String() string {
	if r.IsZero() {
		return "(empty)"
	}
	return fmt.Sprintf("(%s - %s)", r.start, r.end)
}

type wireRange struct {
	Start json.RawMessage `json:"start"`
	End   json.RawMessage `json:"end"`
}

// MarshalJSON encodes bounds as decimal strings so that clients without
// big integer support do not lose precision.
func (r Range) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{r.start.String(), r.end.String()})
}

// UnmarshalJSON accepts bounds as JSON strings or numbers and validates
// them like New.
func (r *Range) UnmarshalJSON(data []byte) error {
	var w wireRange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	start, err := ParseInt(w.Start)
	if err != nil {
		return errors.Wrap(err, "start")
	}
	end, err := ParseInt(w.End)
	if err != nil {
		return errors.Wrap(err, "end")
	}
	parsed, err := New(start, end)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseInt decodes an integer that was sent either as a JSON number or as
// a JSON string holding a base-10 integer.
func ParseInt(raw json.RawMessage) (*big.Int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, errors.New("missing integer")
	}
	if text[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		text = strings.TrimSpace(s)
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, errors.Errorf("%q is not an integer", text)
	}
	return n, nil
}
