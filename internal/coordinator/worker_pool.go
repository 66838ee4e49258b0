package coordinator

import (
	"context"
	"math/big"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/dreamware/primesplit/internal/cluster"
	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/primality"
)

// ErrNoWorkers is returned by a pool that has nowhere to run a task.
var ErrNoWorkers = errors.New("no workers available")

// LocalWorkerName is reported as the node of shares counted in-process.
const LocalWorkerName = "local"

// Task is one share sent to one worker.
type Task struct {
	JobID  string
	Share  interval.Share
	Worker int // 1-based worker number within the job
}

// Worker counts the primes of a single task. Implementations must honour
// ctx cancellation.
type Worker interface {
	Name() string
	CountPrimes(ctx context.Context, task Task) (*big.Int, error)
}

// WorkerPool hands out a worker for each task of a job.
type WorkerPool interface {
	Acquire(ctx context.Context, worker int) (Worker, error)
}

// LocalWorker counts in the calling process.
type LocalWorker struct{}

func (LocalWorker) Name() string { return LocalWorkerName }

func (LocalWorker) CountPrimes(ctx context.Context, task Task) (*big.Int, error) {
	return primality.CountPrimes(ctx, task.Share)
}

// LocalPool runs every task in-process, one goroutine per share.
type LocalPool struct{}

func (LocalPool) Acquire(context.Context, int) (Worker, error) { return LocalWorker{}, nil }

// RemotePool spreads tasks round-robin over the available nodes of a
// registry. Worker n of a job goes to node (n-1) mod len(nodes), so with
// as many nodes as workers every share lands on its own node.
type RemotePool struct {
	registry *NodeRegistry
	client   *http.Client
	fallback bool
}

// NewRemotePool creates a pool over registry. When fallback is set and no
// node is available, tasks are counted locally instead of failing with
// ErrNoWorkers.
func NewRemotePool(registry *NodeRegistry, fallback bool) *RemotePool {
	return &RemotePool{
		registry: registry,
		// No client timeout: counting time grows with the share, and the
		// job context bounds the call.
		client:   &http.Client{},
		fallback: fallback,
	}
}

func (p *RemotePool) Acquire(ctx context.Context, worker int) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes := p.registry.Available()
	if len(nodes) == 0 {
		if p.fallback {
			return LocalWorker{}, nil
		}
		return nil, ErrNoWorkers
	}
	idx := (worker - 1) % len(nodes)
	if idx < 0 {
		idx += len(nodes)
	}
	return &RemoteWorker{node: nodes[idx], client: p.client}, nil
}

// RemoteWorker posts a task to a node's /count endpoint.
type RemoteWorker struct {
	client *http.Client
	node   cluster.NodeInfo
}

// NewRemoteWorker creates a worker bound to node.
func NewRemoteWorker(node cluster.NodeInfo, client *http.Client) *RemoteWorker {
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteWorker{node: node, client: client}
}

func (w *RemoteWorker) Name() string { return w.node.ID }

func (w *RemoteWorker) CountPrimes(ctx context.Context, task Task) (*big.Int, error) {
	req := cluster.CountRequest{JobID: task.JobID, Worker: task.Worker, Share: task.Share}
	var resp cluster.CountResponse

	url := strings.TrimRight(w.node.Addr, "/") + "/count"
	if err := cluster.PostJSONWith(ctx, w.client, url, req, &resp); err != nil {
		return nil, errors.Wrapf(err, "node %s", w.node.ID)
	}
	if resp.Count == nil || resp.Count.Sign() < 0 {
		return nil, errors.Errorf("node %s returned invalid count %v", w.node.ID, resp.Count)
	}
	return resp.Count, nil
}
