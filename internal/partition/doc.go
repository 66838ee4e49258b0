// Package partition computes how a list of ranges is divided between a
// fixed number of workers.
//
// The split is greedy and order preserving: worker 1 receives a prefix of
// the input, worker 2 the next prefix, and so on. A single range may be cut
// between two adjacent workers. The resulting shares are pairwise disjoint
// and together cover exactly the points of the input.
//
//	input:   (1 - 10) (20 - 24)          total size 13, 3 workers
//	target:  ceil(13 / 3) = 5
//	worker1: (1 - 6)                     size 5
//	worker2: (7 - 10) (20 - 22)          size 3 + 2
//	worker3: (23 - 24)                   size 1
package partition
