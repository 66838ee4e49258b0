// Package interval defines the closed integer ranges that a prime counting
// job is made of, and the per-worker Share built from them.
//
// # Ranges
//
// A Range is [Start, End] with 0 <= Start <= End, held as math/big integers
// so bounds are not limited to a machine word. Ranges are values: every
// constructor and Split returns freshly allocated integers and no method
// mutates its receiver.
//
// Two size measures exist and must not be confused:
//
//	Count()  = End - Start        balancing metric used by the partitioner
//	Points() = End - Start + 1    number of integers actually covered
//
// # Splitting
//
// Split(r, k) produces [s, s+k] and [s+k+1, e]. The boundary point s+k goes
// to the head, i.e. to the earlier worker, and is never duplicated:
//
//	[10 ........................ 30]
//	Split(k=5)
//	[10 ..... 15] [16 .......... 30]
//
// # Wire format
//
// Ranges encode to JSON as {"start":"10","end":"30"}; decoding also accepts
// plain JSON numbers and runs the same validation as New.
package interval
