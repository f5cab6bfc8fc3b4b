// Package alloc provides concrete allocators behind the ownptr.Allocator
// capability.
//
// Slab is a chunked slab allocator over Go heap blocks: bump allocation with
// alignment, per-layout free lists so freed blocks are recycled. It is the
// narrow in-repo allocator for callers that need real reclamation semantics
// without a foreign runtime.
//
// Tracking wraps any Allocator and records every live block with the layout
// it was allocated under. It exists so tests and tools can verify
// allocation/deallocation symmetry: a free with an unknown address or a
// mismatched layout is a fatal bookkeeping violation, and Close reports
// every block still live. Logging goes through zap and is silent by default.
package alloc
