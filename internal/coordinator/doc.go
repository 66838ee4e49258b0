// Package coordinator implements the control plane of primesplit: it accepts
// prime counting jobs, splits them between workers, collects the partial
// counts and keeps track of the worker nodes that do the counting.
//
// # Overview
//
// A job is a list of closed ranges and a worker count. The coordinator
// partitions the ranges into one share per worker (see package partition),
// sends every non-empty share to a worker at the same time, waits for all
// of them and reports the sum. Jobs are accepted over HTTP, run in the
// background and are persisted through a storage.Store so that clients
// can poll for the result.
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│             COORDINATOR               │
//	├──────────────────────────────────────┤
//	│  Server (HTTP API)                    │
//	│    POST /jobs      submit             │
//	│    GET  /jobs/{id} poll               │
//	│    POST /register  node membership    │
//	│         │                             │
//	│         ▼                             │
//	│  Dispatcher                           │
//	│    partition → fan out → join → sum   │
//	│         │                             │
//	│         ▼                             │
//	│  WorkerPool                           │
//	│    LocalPool   in-process counting    │
//	│    RemotePool  POST /count to nodes   │
//	│         │                             │
//	│         ▼                             │
//	│  NodeRegistry ◄── HealthMonitor       │
//	└──────────────────────────────────────┘
//
// # Core Components
//
// Dispatcher: runs one job end to end
//   - Partitions the job's ranges with partition.Partition
//   - Starts one task per non-empty share on an errgroup
//   - Cancels the remaining tasks when one fails
//   - Sums the partial counts once every task has returned
//
// WorkerPool: decides where a share is counted
//   - LocalPool counts in the coordinator process
//   - RemotePool assigns worker n to node (n-1) mod len(nodes) among
//     nodes that are not unhealthy, and optionally falls back to local
//     counting when no node is available
//
// NodeRegistry: membership of worker nodes
//   - Filled by POST /register
//   - Status updated by the HealthMonitor
//
// HealthMonitor: periodic GET /health against every node
//   - A node is unhealthy after three consecutive failed checks
//   - A single successful check makes it healthy again
//
// Server: HTTP front end and job lifecycle
//   - pending → running → completed | failed
//   - Validation errors are answered synchronously with 400 and an error
//     kind; nothing is stored for a rejected request
//
// # Failure Semantics
//
// A job either completes with the exact total or fails as a whole. When a
// worker returns an error, or the job's context is cancelled, the
// dispatcher returns a *WorkerError that matches ErrWorkerFailure and no
// partial total is reported:
//
//	res, err := d.RunJob(ctx, job)
//	if errors.Is(err, coordinator.ErrWorkerFailure) {
//		var werr *coordinator.WorkerError
//		errors.As(err, &werr)
//		log.Printf("worker %d on %s failed: %v", werr.Worker, werr.Node, werr.Err)
//	}
//
// # Concurrency
//
// Each task owns one slot of the job's result slice and writes nothing else;
// the goroutine that calls RunJob is the only one that reads the slots, and
// only after the errgroup has been joined. No counter is shared between
// tasks.
//
// NodeRegistry and HealthMonitor guard their state with RWMutex and return
// copies.
//
// # Usage
//
//	registry := coordinator.NewNodeRegistry()
//	pool := coordinator.NewRemotePool(registry, true)
//	dispatcher := coordinator.NewDispatcher(pool, log, metrics.New())
//	srv := coordinator.NewServer(coordinator.ServerOptions{
//		Store:      storage.NewMemoryStore(),
//		Registry:   registry,
//		Dispatcher: dispatcher,
//		Logger:     log,
//	})
//	http.ListenAndServe(":8080", srv.Handler())
package coordinator
