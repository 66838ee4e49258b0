package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dreamware/primesplit/internal/cluster"
	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/job"
	"github.com/dreamware/primesplit/internal/metrics"
	"github.com/dreamware/primesplit/internal/partition"
	"github.com/dreamware/primesplit/internal/storage"
)

const defaultListLimit = 50

// ErrShuttingDown is returned for jobs submitted after Close.
var ErrShuttingDown = errors.New("coordinator is shutting down")

// Error kinds reported in the "kind" field of error responses.
const (
	KindMalformedRequest   = "malformed_request"
	KindInvalidRange       = "invalid_range"
	KindInvalidWorkerCount = "invalid_worker_count"
	KindNotFound           = "not_found"
	KindUnavailable        = "unavailable"
	KindInternal           = "internal"
)

// ErrorResponse is the body of every non-2xx answer from the coordinator.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// JobHandle is returned by POST /jobs. Clients poll StatusURL until the
// job's status is final.
type JobHandle struct {
	ID        string     `json:"id"`
	Status    job.Status `json:"status"`
	StatusURL string     `json:"status_url"`
}

// ServerOptions configures a Server. Store, Registry and Dispatcher are
// required.
type ServerOptions struct {
	Store      storage.Store
	Registry   *NodeRegistry
	Dispatcher *Dispatcher
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger

	// Monitor, when set, forgets the health history of a node that
	// registers again.
	Monitor *HealthMonitor

	// PublicURL prefixes status URLs. When empty the request's Host is used.
	PublicURL string

	// JobTimeout bounds a single job. Zero means no limit.
	JobTimeout time.Duration
}

// Server is the coordinator's HTTP API. Jobs run in the background on a
// context owned by the server, so a client disconnecting after POST /jobs
// does not abort its job; Close does.
type Server struct {
	opts ServerOptions
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex // guards closed and jobs.Add
	closed bool
	jobs   sync.WaitGroup
}

// NewServer creates a Server.
func NewServer(opts ServerOptions) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:   opts,
		log:    opts.Logger.With().Str("subsystem", "api").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the routes of the coordinator.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleSubmit)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /nodes", s.handleListNodes)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	return mux
}

// Close cancels running jobs and waits for them to record their final
// state, or for ctx to expire.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running jobs")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := job.Decode(r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := req.Validate()
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !s.startJob() {
		s.writeError(w, ErrShuttingDown)
		return
	}
	started := false
	defer func() {
		if !started {
			s.jobs.Done()
		}
	}()

	now := time.Now().UTC()
	rec := &job.Record{
		ID:          uuid.NewString(),
		Status:      job.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Ranges:      spec.Ranges,
		WorkerCount: spec.WorkerCount,
	}
	if err := s.opts.Store.Create(r.Context(), rec); err != nil {
		s.writeError(w, errors.Wrap(err, "create job"))
		return
	}

	s.log.Info().
		Str("job", rec.ID).
		Int("workers", spec.WorkerCount).
		Int("ranges", len(spec.Ranges)).
		Msg("job accepted")

	handle := JobHandle{ID: rec.ID, Status: rec.Status, StatusURL: s.statusURL(r, rec.ID)}

	started = true
	go s.run(rec)

	w.Header().Set("Location", handle.StatusURL)
	writeJSON(w, http.StatusAccepted, handle)
}

// startJob reserves a slot in jobs unless the server is closed.
func (s *Server) startJob() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.jobs.Add(1)
	return true
}

// run executes rec and persists every state change.
func (s *Server) run(rec *job.Record) {
	defer s.jobs.Done()

	ctx := s.ctx
	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}
	// Store writes must land even after the job context is cancelled.
	storeCtx := context.WithoutCancel(ctx)

	start := time.Now()
	rec.Status = job.StatusRunning
	rec.UpdatedAt = time.Now().UTC()
	s.update(storeCtx, rec)

	res, err := s.opts.Dispatcher.RunJob(ctx, Job{ID: rec.ID, Ranges: rec.Ranges, WorkerCount: rec.WorkerCount})
	if err != nil {
		rec.Status = job.StatusFailed
		rec.Error = err.Error()
	} else {
		rec.Status = job.StatusCompleted
		rec.Total = res.Total
		rec.Distribution = res.Assignments
	}
	rec.UpdatedAt = time.Now().UTC()
	s.opts.Metrics.JobFinished(string(rec.Status), time.Since(start))
	s.update(storeCtx, rec)
}

func (s *Server) update(ctx context.Context, rec *job.Record) {
	if err := s.opts.Store.Update(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("job", rec.ID).Str("status", string(rec.Status)).Msg("failed to persist job")
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := s.opts.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, errors.Wrapf(job.ErrMalformedRequest, "limit %q", v))
			return
		}
		limit = n
	}
	recs, err := s.opts.Store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Jobs []*job.Record `json:"jobs"`
	}{Jobs: recs})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(job.ErrMalformedRequest, "bad json"))
		return
	}
	if req.Node.ID == "" || req.Node.Addr == "" {
		s.writeError(w, errors.Wrap(job.ErrMalformedRequest, "missing id/addr"))
		return
	}
	req.Node.Status = cluster.StatusUnknown
	if s.opts.Registry.Register(req.Node) {
		s.log.Info().Str("node", req.Node.ID).Str("addr", req.Node.Addr).Msg("node registered")
	} else {
		s.log.Info().Str("node", req.Node.ID).Str("addr", req.Node.Addr).Msg("node re-registered")
	}
	if s.opts.Monitor != nil {
		s.opts.Monitor.Forget(req.Node.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Nodes []cluster.NodeInfo `json:"nodes"`
	}{Nodes: s.opts.Registry.Nodes()})
}

func (s *Server) statusURL(r *http.Request, id string) string {
	base := strings.TrimRight(s.opts.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/jobs/" + id
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, kind := classify(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error(), Kind: kind})
}

// classify maps an error to an HTTP status and error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, job.ErrMalformedRequest):
		return http.StatusBadRequest, KindMalformedRequest
	case errors.Is(err, interval.ErrInvalidRange):
		return http.StatusBadRequest, KindInvalidRange
	case errors.Is(err, partition.ErrInvalidWorkerCount):
		return http.StatusBadRequest, KindInvalidWorkerCount
	case errors.Is(err, storage.ErrJobNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable, KindUnavailable
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
