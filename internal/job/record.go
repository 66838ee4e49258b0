package job

import (
	"math/big"
	"time"

	"github.com/dreamware/primesplit/internal/interval"
)

// Assignment is what one worker was given and what it found.
type Assignment struct {
	Size   *big.Int       `json:"size"`
	Primes *big.Int       `json:"primes,omitempty"`
	Node   string         `json:"node,omitempty"`
	Ranges interval.Share `json:"ranges"`
	Worker int            `json:"worker"`
}

// Record is the stored state of a job, returned by GET /jobs/{id}.
type Record struct {
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Total        *big.Int         `json:"total,omitempty"`
	ID           string           `json:"id"`
	Status       Status           `json:"status"`
	Error        string           `json:"error,omitempty"`
	Ranges       []interval.Range `json:"ranges"`
	Distribution []Assignment     `json:"distribution,omitempty"`
	WorkerCount  int              `json:"machine_count"`
}

// Clone returns a deep copy of r. Ranges are immutable and shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Total = cloneInt(r.Total)
	c.Ranges = append([]interval.Range(nil), r.Ranges...)
	if r.Distribution != nil {
		c.Distribution = make([]Assignment, len(r.Distribution))
		for i, a := range r.Distribution {
			a.Size = cloneInt(a.Size)
			a.Primes = cloneInt(a.Primes)
			a.Ranges = append(interval.Share(nil), a.Ranges...)
			c.Distribution[i] = a
		}
	}
	return &c
}

func cloneInt(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	return new(big.Int).Set(n)
}
