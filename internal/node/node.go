// Package node implements a primesplit worker node: an HTTP service that
// counts the primes of the shares a coordinator sends it.
//
// A node is stateless with respect to jobs. Every POST /count carries the
// complete share to count and is answered with the partial count, so a
// node can serve any number of jobs concurrently and can be restarted at
// any time; the coordinator fails the affected job and nothing else.
//
//	┌───────────────────────────────┐
//	│             Node              │
//	├───────────────────────────────┤
//	│  POST /count   count a share  │
//	│  GET  /health  liveness       │
//	│  GET  /info    task counters  │
//	│  GET  /metrics prometheus     │
//	└───────────────────────────────┘
package node

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/dreamware/primesplit/internal/cluster"
	"github.com/dreamware/primesplit/internal/metrics"
	"github.com/dreamware/primesplit/internal/primality"
)

// maxRequestBytes bounds the size of a /count body.
const maxRequestBytes = 1 << 20

// Info is the body of GET /info.
type Info struct {
	NodeID   string `json:"node_id"`
	Served   int64  `json:"tasks_served"`
	Failed   int64  `json:"tasks_failed"`
	InFlight int64  `json:"tasks_in_flight"`
}

// Node counts primes on behalf of a coordinator.
//
// Counters are updated without locks; Info is a best-effort snapshot.
type Node struct {
	served   atomic.Int64
	failed   atomic.Int64
	inFlight atomic.Int64

	metrics *metrics.Metrics
	log     zerolog.Logger

	// ID identifies the node to the coordinator. Immutable.
	ID string
}

// New creates a node. m may be nil.
func New(id string, log zerolog.Logger, m *metrics.Metrics) *Node {
	return &Node{
		ID:      id,
		metrics: m,
		log:     log.With().Str("node", id).Logger(),
	}
}

// Handler returns the node's HTTP routes.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /count", n.handleCount)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /info", n.handleInfo)
	if n.metrics != nil {
		mux.Handle("GET /metrics", n.metrics.Handler())
	}
	return mux
}

// Info returns the node's task counters.
func (n *Node) Info() Info {
	return Info{
		NodeID:   n.ID,
		Served:   n.served.Load(),
		Failed:   n.failed.Load(),
		InFlight: n.inFlight.Load(),
	}
}

// handleCount counts the posted share with the request's context, so a
// coordinator that cancels the job stops the work here too.
//
// Responses:
//   - 200 OK: CountResponse
//   - 400 Bad Request: body is not a valid CountRequest
//   - 503 Service Unavailable: the request was cancelled mid-count
func (n *Node) handleCount(w http.ResponseWriter, r *http.Request) {
	var req cluster.CountRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		n.failed.Inc()
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	n.inFlight.Inc()
	defer n.inFlight.Dec()

	start := time.Now()
	count, err := primality.CountPrimes(r.Context(), req.Share)
	took := time.Since(start)
	n.metrics.TaskFinished(err == nil, took)
	if err != nil {
		n.failed.Inc()
		n.log.Warn().Err(err).Str("job", req.JobID).Int("worker", req.Worker).Msg("count aborted")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	n.served.Inc()

	n.log.Debug().
		Str("job", req.JobID).
		Int("worker", req.Worker).
		Stringer("share", req.Share).
		Str("size", req.Share.Size().String()).
		Str("primes", count.String()).
		Dur("took", took).
		Msg("share counted")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cluster.CountResponse{Count: count, NodeID: n.ID})
}

func (n *Node) handleInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(n.Info())
}
