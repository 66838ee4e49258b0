package coordinator

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/primesplit/internal/cluster"
)

// NodeRegistry is the authoritative list of worker nodes known to the
// coordinator, in registration order.
//
// Nodes join through POST /register and are never removed automatically;
// the health monitor flips their Status instead, and only nodes that are
// not unhealthy are offered for new work.
//
// Concurrency Model:
//   - Read operations use RLock for parallel access
//   - Write operations use Lock for exclusive access
//   - All returned data is copied to prevent races
type NodeRegistry struct {
	// nodes holds registered nodes in registration order so that
	// round-robin selection is stable between calls.
	nodes []cluster.NodeInfo

	// mu protects nodes.
	mu sync.RWMutex
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{}
}

// Register adds a node, or refreshes the address of a node that registers
// again with the same ID (for example after a restart). A re-registering
// node is considered alive again.
//
// Returns:
//   - true if the node was not known before
func (r *NodeRegistry) Register(node cluster.NodeInfo) bool {
	if node.Status == "" {
		node.Status = cluster.StatusUnknown
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.nodes, func(n cluster.NodeInfo) bool { return n.ID == node.ID })
	if idx >= 0 {
		r.nodes[idx] = node
		return false
	}
	r.nodes = append(r.nodes, node)
	return true
}

// Remove drops a node from the registry.
func (r *NodeRegistry) Remove(nodeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.nodes, func(n cluster.NodeInfo) bool { return n.ID == nodeID })
	if idx < 0 {
		return false
	}
	r.nodes = slices.Delete(r.nodes, idx, idx+1)
	return true
}

// SetStatus records the health status of a node.
//
// Returns:
//   - false if the node is not registered
func (r *NodeRegistry) SetStatus(nodeID, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.nodes, func(n cluster.NodeInfo) bool { return n.ID == nodeID })
	if idx < 0 {
		return false
	}
	r.nodes[idx].Status = status
	return true
}

// Get returns a registered node by ID.
func (r *NodeRegistry) Get(nodeID string) (cluster.NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := slices.IndexFunc(r.nodes, func(n cluster.NodeInfo) bool { return n.ID == nodeID })
	if idx < 0 {
		return cluster.NodeInfo{}, false
	}
	return r.nodes[idx], true
}

// Nodes returns a copy of every registered node.
func (r *NodeRegistry) Nodes() []cluster.NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.nodes)
}

// Available returns the nodes that may receive work: healthy ones and
// those not checked yet.
func (r *NodeRegistry) Available() []cluster.NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cluster.NodeInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.Status != cluster.StatusUnhealthy {
			out = append(out, n)
		}
	}
	return out
}
