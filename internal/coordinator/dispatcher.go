package coordinator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/job"
	"github.com/dreamware/primesplit/internal/metrics"
	"github.com/dreamware/primesplit/internal/partition"
)

// ErrWorkerFailure marks a job that failed because one of its counting
// tasks did not return a count. Use errors.As with *WorkerError for details.
var ErrWorkerFailure = errors.New("worker failure")

// WorkerError reports which worker of a job failed and why.
type WorkerError struct {
	Err    error
	Node   string
	Worker int
}

func (e *WorkerError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("worker %d: %v", e.Worker, e.Err)
	}
	return fmt.Sprintf("worker %d on %s: %v", e.Worker, e.Node, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// Is makes every WorkerError match ErrWorkerFailure.
func (e *WorkerError) Is(target error) bool { return target == ErrWorkerFailure }

// Job is a validated counting request.
type Job struct {
	ID          string
	Ranges      []interval.Range
	WorkerCount int
}

// Result is the aggregated outcome of a job.
type Result struct {
	Total       *big.Int
	Assignments []job.Assignment
}

// Dispatcher partitions jobs, fans shares out to a WorkerPool and sums the
// partial counts.
type Dispatcher struct {
	pool    WorkerPool
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(pool WorkerPool, log zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		pool:    pool,
		metrics: m,
		log:     log.With().Str("subsystem", "dispatcher").Logger(),
	}
}

// RunJob partitions j into j.WorkerCount shares, counts every non-empty
// share concurrently and returns the sum.
//
// Validation errors are returned before anything is dispatched. Once tasks
// run, the first failing task cancels its siblings and RunJob returns a
// *WorkerError; there is no partial total. Cancelling ctx aborts all
// outstanding tasks the same way.
func (d *Dispatcher) RunJob(ctx context.Context, j Job) (Result, error) {
	shares, err := partition.Partition(j.Ranges, j.WorkerCount)
	if err != nil {
		return Result{}, err
	}
	d.logDistribution(j.ID, shares)

	// Each task writes only its own slot.
	assignments := make([]job.Assignment, len(shares))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.WorkerCount)

	for i, share := range shares {
		assignments[i] = job.Assignment{Worker: i + 1, Ranges: share, Size: share.Size()}
		if share.Empty() {
			assignments[i].Primes = new(big.Int)
			continue
		}

		slot := &assignments[i]
		task := Task{JobID: j.ID, Worker: i + 1, Share: share}
		g.Go(func() error {
			return d.runTask(gctx, task, slot)
		})
	}

	if err := g.Wait(); err != nil {
		d.log.Error().Err(err).Str("job", j.ID).Msg("job failed")
		return Result{}, err
	}

	total := new(big.Int)
	for _, a := range assignments {
		total.Add(total, a.Primes)
	}
	d.log.Info().Str("job", j.ID).Str("total", total.String()).Int("workers", j.WorkerCount).Msg("job completed")
	return Result{Total: total, Assignments: assignments}, nil
}

func (d *Dispatcher) runTask(ctx context.Context, task Task, slot *job.Assignment) error {
	w, err := d.pool.Acquire(ctx, task.Worker)
	if err != nil {
		return &WorkerError{Worker: task.Worker, Err: err}
	}

	start := time.Now()
	count, err := w.CountPrimes(ctx, task)
	d.metrics.TaskFinished(err == nil, time.Since(start))
	if err != nil {
		return &WorkerError{Worker: task.Worker, Node: w.Name(), Err: err}
	}

	slot.Node = w.Name()
	slot.Primes = count
	d.log.Debug().
		Str("job", task.JobID).
		Int("worker", task.Worker).
		Str("node", w.Name()).
		Str("primes", count.String()).
		Dur("took", time.Since(start)).
		Msg("share counted")
	return nil
}

// logDistribution writes one debug entry per worker describing its share.
func (d *Dispatcher) logDistribution(jobID string, shares []interval.Share) {
	if d.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	for _, s := range partition.Describe(shares) {
		d.log.Debug().
			Str("job", jobID).
			Int("worker", s.Worker).
			Stringer("ranges", s.Ranges).
			Str("size", s.Size.String()).
			Msg("share assigned")
	}
}
