// Package guest applies the ownership discipline to wasm linear memory.
//
// Guest addresses are uint32 offsets into a module's memory, and the
// allocator is the guest's own exported code: either a C-style malloc/free
// pair or a single cabi_realloc-shaped export. Offset 0 is the null address
// of this space.
//
// Detect picks whichever discipline a module exports and returns it behind
// the Allocator interface. Every address must be freed under the same
// discipline (and the same size/align) it was allocated under; Detect
// returning a single allocator per module is what keeps that symmetric.
//
// Owned is the owning fat pointer: offset and size travel together, because
// a bare offset cannot describe a guest block. It follows the exactly-once
// rules of ownptr.Unique - Close frees once, Release suppresses disposal
// permanently.
//
// No locking is performed; an Owned follows the module's own threading
// discipline.
package guest
