// Package job decodes prime counting requests and defines the job model
// shared by the coordinator, the store and the CLI.
package job

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/partition"
)

// ErrMalformedRequest is returned when a payload cannot be decoded into a
// Request. Well formed requests with bad values fail with
// interval.ErrInvalidRange or partition.ErrInvalidWorkerCount instead.
var ErrMalformedRequest = errors.New("malformed request")

const (
	// maxBodyBytes bounds the size of a decoded request.
	maxBodyBytes = 1 << 20
	// maxWorkers caps machineCount so a request cannot make the
	// partitioner allocate an arbitrary number of shares.
	maxWorkers = 1 << 16
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Done reports whether the job has reached a final state.
func (s Status) Done() bool { return s == StatusCompleted || s == StatusFailed }

// RangeSpec is one {start, end} pair as sent by a client. Either bound may
// be a JSON number or a string holding a base-10 integer.
type RangeSpec struct {
	Start json.RawMessage `json:"start"`
	End   json.RawMessage `json:"end"`
}

// Request is the body of a job submission.
type Request struct {
	MachineCount json.RawMessage `json:"machineCount"`
	Ranges       []RangeSpec     `json:"ranges"`
}

// Spec is a validated request.
type Spec struct {
	Ranges      []interval.Range
	WorkerCount int
}

// Decode reads a Request from r. Any decoding problem, including unknown
// fields and trailing data, is reported as ErrMalformedRequest.
func Decode(r io.Reader) (Request, error) {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		return Request{}, errors.Wrap(ErrMalformedRequest, err.Error())
	}
	if dec.More() {
		return Request{}, errors.Wrap(ErrMalformedRequest, "trailing data after request")
	}
	if len(bytes.TrimSpace(req.MachineCount)) == 0 {
		return Request{}, errors.Wrap(ErrMalformedRequest, "machineCount is required")
	}
	return req, nil
}

// Validate converts the request into a Spec.
func (req Request) Validate() (Spec, error) {
	n, err := interval.ParseInt(req.MachineCount)
	if err != nil {
		return Spec{}, errors.Wrap(ErrMalformedRequest, "machineCount: "+err.Error())
	}
	if n.Sign() <= 0 {
		return Spec{}, errors.Wrapf(partition.ErrInvalidWorkerCount, "machineCount %s", n)
	}
	if !n.IsInt64() || n.Int64() > maxWorkers {
		return Spec{}, errors.Wrapf(partition.ErrInvalidWorkerCount, "machineCount %s exceeds %d", n, maxWorkers)
	}

	ranges := make([]interval.Range, 0, len(req.Ranges))
	for i, spec := range req.Ranges {
		start, err := interval.ParseInt(spec.Start)
		if err != nil {
			return Spec{}, errors.Wrapf(ErrMalformedRequest, "ranges[%d].start: %v", i, err)
		}
		end, err := interval.ParseInt(spec.End)
		if err != nil {
			return Spec{}, errors.Wrapf(ErrMalformedRequest, "ranges[%d].end: %v", i, err)
		}
		r, err := interval.New(start, end)
		if err != nil {
			return Spec{}, errors.Wrapf(err, "ranges[%d]", i)
		}
		ranges = append(ranges, r)
	}
	return Spec{Ranges: ranges, WorkerCount: int(n.Int64())}, nil
}

// NewRequest builds a Request from validated values, as the CLI does before
// submitting to a coordinator.
func NewRequest(workers int, ranges []interval.Range) Request {
	req := Request{
		MachineCount: json.RawMessage(big.NewInt(int64(workers)).String()),
		Ranges:       make([]RangeSpec, len(ranges)),
	}
	for i, r := range ranges {
		req.Ranges[i] = RangeSpec{
			Start: quote(r.Start()),
			End:   quote(r.End()),
		}
	}
	return req
}

func quote(n *big.Int) json.RawMessage {
	return json.RawMessage(`"` + n.String() + `"`)
}
