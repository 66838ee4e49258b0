package coordinator

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dreamware/primesplit/internal/cluster"
)

// NodeHealth tracks the health status of a single worker node.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type NodeHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	NodeID           string    // Unique identifier of the node
	Status           string    // One of cluster.StatusHealthy, StatusUnhealthy, StatusUnknown
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// HealthMonitor periodically probes every registered node's /health
// endpoint. A node becomes unhealthy after maxFailures consecutive failed
// probes and healthy again after one successful probe; both transitions are
// reported through callbacks so the registry stops or resumes routing
// shares to it.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	nodes       map[string]*NodeHealth                     // Current health status per node
	httpClient  *http.Client                               // HTTP client for health checks
	checkFunc   func(ctx context.Context, addr string) error // Function to perform health check
	onUnhealthy func(nodeID string)                        // Called when a node becomes unhealthy
	onHealthy   func(nodeID string)                        // Called when a node passes a check after not being healthy
	ctx         context.Context                            // Context for cancellation
	cancel      context.CancelFunc                         // Cancel function for shutdown
	log         zerolog.Logger
	interval    time.Duration  // How often to check node health
	timeout     time.Duration  // Timeout for one health check
	mu          sync.RWMutex   // Protects nodes map and callbacks
	wg          sync.WaitGroup // Wait group for graceful shutdown
	maxFailures int            // Failures before marking unhealthy
}

// NewHealthMonitor creates a health monitor that checks nodes every
// interval. Nodes are marked unhealthy after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(5*time.Second, log)
//	monitor.SetOnUnhealthy(func(id string) { registry.SetStatus(id, cluster.StatusUnhealthy) })
//	go monitor.Start(ctx, registry.Nodes)
func NewHealthMonitor(interval time.Duration, log zerolog.Logger) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	h := &HealthMonitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		nodes:       make(map[string]*NodeHealth),
		httpClient:  &http.Client{Timeout: 2 * time.Second},
		log:         log.With().Str("subsystem", "health").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
	h.checkFunc = h.defaultHealthCheck
	return h
}

// SetOnUnhealthy sets the callback invoked when a node becomes unhealthy.
func (h *HealthMonitor) SetOnUnhealthy(callback func(nodeID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnhealthy = callback
}

// SetOnHealthy sets the callback invoked when a node passes a check while
// it was not healthy, including its first successful check.
func (h *HealthMonitor) SetOnHealthy(callback func(nodeID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onHealthy = callback
}

// SetCheckFunction overrides the probe, mostly for tests.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, addr string) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkFunc = checkFunc
}

// Start runs the monitoring loop in the current goroutine until ctx is
// cancelled or Stop is called. nodeProvider is consulted on every tick so
// nodes registered later are picked up.
func (h *HealthMonitor) Start(ctx context.Context, nodeProvider func() []cluster.NodeInfo) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info().Dur("interval", h.interval).Msg("health monitor started")

	h.checkAllNodes(ctx, nodeProvider())

	for {
		select {
		case <-ticker.C:
			h.checkAllNodes(ctx, nodeProvider())
		case <-ctx.Done():
			h.log.Info().Msg("health monitor stopping due to context cancellation")
			return
		case <-h.ctx.Done():
			h.log.Info().Msg("health monitor stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels the monitoring loop and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
}

// checkAllNodes probes every node and forgets nodes that disappeared.
func (h *HealthMonitor) checkAllNodes(ctx context.Context, nodes []cluster.NodeInfo) {
	current := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		current[node.ID] = true
		h.checkNode(ctx, node)
	}

	h.mu.Lock()
	for nodeID := range h.nodes {
		if !current[nodeID] {
			delete(h.nodes, nodeID)
			h.log.Debug().Str("node", nodeID).Msg("node removed from health monitoring")
		}
	}
	h.mu.Unlock()
}

// checkNode probes one node and applies the state transition. Callbacks run
// on the calling goroutine after the lock is released, so transitions for a
// node are reported in the order they happened.
func (h *HealthMonitor) checkNode(ctx context.Context, node cluster.NodeInfo) {
	h.mu.Lock()
	health, exists := h.nodes[node.ID]
	if !exists {
		health = &NodeHealth{
			NodeID:    node.ID,
			Status:    cluster.StatusUnknown,
			LastCheck: time.Now(),
		}
		h.nodes[node.ID] = health
	}
	check := h.checkFunc
	h.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := check(checkCtx, node.Addr)
	cancel()

	if notify := h.record(node.ID, health, err); notify != nil {
		notify(node.ID)
	}
}

// record applies one check result to health and returns the callback to
// fire, if any. A result for a record that was forgotten while the check was
// in flight is dropped.
func (h *HealthMonitor) record(nodeID string, health *NodeHealth, err error) func(string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.nodes[nodeID] != health {
		return nil
	}

	health.LastCheck = time.Now()
	previous := health.Status

	if err != nil {
		health.ConsecutiveFails++
		h.log.Warn().Err(err).
			Str("node", nodeID).
			Int("attempt", health.ConsecutiveFails).
			Int("max", h.maxFailures).
			Msg("health check failed")

		if health.ConsecutiveFails >= h.maxFailures {
			health.Status = cluster.StatusUnhealthy
			if previous != cluster.StatusUnhealthy {
				h.log.Warn().Str("node", nodeID).Msg("node marked unhealthy")
				return h.onUnhealthy
			}
		}
		return nil
	}

	health.Status = cluster.StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = health.LastCheck
	if previous != cluster.StatusHealthy {
		if previous == cluster.StatusUnhealthy {
			h.log.Info().Str("node", nodeID).Msg("node recovered")
		}
		return h.onHealthy
	}
	return nil
}

// Forget drops the health record of a node. The next check starts from
// unknown with no failures, as for a node seen for the first time. Called
// when a node registers again so that its monitored state matches the
// registry's.
func (h *HealthMonitor) Forget(nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.nodes[nodeID]; ok {
		delete(h.nodes, nodeID)
		h.log.Debug().Str("node", nodeID).Msg("node health reset")
	}
}

// defaultHealthCheck GETs {addr}/health and expects 200 OK. addr may be a
// full URL or host:port.
func (h *HealthMonitor) defaultHealthCheck(ctx context.Context, addr string) error {
	url := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		url = "http://" + addr
	}
	if !strings.HasSuffix(url, "/health") {
		url = strings.TrimRight(url, "/") + "/health"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build health check request")
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "health check %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("health check %s returned status %d", url, resp.StatusCode)
	}
	return nil
}

// GetNodeHealth returns a copy of a node's health record, or nil if the
// node is not monitored.
func (h *HealthMonitor) GetNodeHealth(nodeID string) *NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[nodeID]
	if !exists {
		return nil
	}
	c := *health
	return &c
}

// IsHealthy reports whether a monitored node passed its last check cycle.
func (h *HealthMonitor) IsHealthy(nodeID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[nodeID]
	return exists && health.Status == cluster.StatusHealthy
}
