package ownptr

import "unsafe"

// Layout describes the size and alignment of an allocation. The same layout
// that produced an address must be supplied when the address is freed;
// allocation and deallocation are symmetric by contract.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// LayoutOf returns the allocation layout for T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// Allocator allocates and frees raw memory outside the garbage collector's
// view. It is always an injected capability, never ambient state, so tests
// can substitute a tracking implementation.
//
// Memory handed out by an Allocator is untyped from the collector's point of
// view: payloads stored through it must not contain Go pointers unless the
// referents are kept alive elsewhere.
type Allocator interface {
	// Alloc returns the address of a new block with the given layout.
	Alloc(layout Layout) (unsafe.Pointer, error)

	// Free returns a block to the allocator. The layout must equal the one
	// used to allocate the address.
	Free(ptr unsafe.Pointer, layout Layout)
}

// Dropper is optionally implemented by payloads that need cleanup before
// their storage is reclaimed.
type Dropper interface {
	Drop()
}

// Cloner is optionally implemented by payloads that need deep duplication.
// CloneInto writes a fully independent copy of the receiver's value to dst,
// which points at uninitialized storage of the same type.
type Cloner interface {
	CloneInto(dst unsafe.Pointer)
}

// Deleter is a disposal strategy. Delete reclaims the resource behind addr;
// it is handed the type descriptor the address was owned under so
// allocator-aware strategies can recompute the layout.
//
// Delete must not fail through a recoverable channel. It is a
// destructor-equivalent operation: a strategy that can fail must swallow or
// abort internally, and must never leave the same address disposable twice.
//
// Payload teardown is not the deleter's job. The owning wrapper runs the
// payload's Drop before invoking Delete, so Delete only reclaims storage.
type Deleter interface {
	Delete(t Type, addr unsafe.Pointer)
}
