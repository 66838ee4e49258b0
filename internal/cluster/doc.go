// Package cluster holds the types exchanged between the coordinator and its
// worker nodes, and the small HTTP/JSON helpers used to exchange them.
//
// # Topology
//
// One coordinator, any number of nodes:
//
//	           client
//	             |  POST /jobs
//	       +-------------+
//	       | Coordinator |  partition, dispatch, aggregate
//	       +-------------+
//	        |     |     |   POST /count (one Share each)
//	     node-1 node-2 node-3
//
// Nodes announce themselves with POST /register carrying a RegisterRequest,
// and answer GET /health so the coordinator can stop routing work to them
// when they fail.
//
// # Counting protocol
//
// For every non-empty share the coordinator posts a CountRequest to a node's
// /count endpoint and expects a CountResponse back. The exchange is
// stateless: a node keeps nothing between requests, so a share can be
// re-sent to any node without coordination.
//
// Integers travel as decimal strings inside JSON (see package interval), and
// counts use math/big's JSON number encoding, so nothing is truncated to 64
// bits on the way.
//
// # Errors
//
// PostJSON and GetJSON return *StatusError for non-2xx replies so callers
// can tell a peer that rejected the request from one that was unreachable.
package cluster
