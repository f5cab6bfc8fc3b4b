// Package ownptr provides a single-ownership pointer primitive for memory
// that Go's garbage collector cannot manage: wasm linear-memory offsets
// reached through a guest's exported allocator, slab-allocated blocks,
// foreign handles crossing an FFI boundary.
//
// Unique[T] owns exactly one non-null address and guarantees that a
// pluggable disposal strategy (a Deleter) runs exactly once, at a
// well-defined point, no matter how ownership is transferred.
//
// # Architecture Overview
//
// The module is organized into a small core and its collaborators:
//
//	ownptr/          Root package: Unique, Deleter, Box, Allocator contracts
//	├── alloc/       Concrete allocators: chunked slab, tracking wrapper
//	├── guest/       Ownership of wasm linear memory via wazero
//	├── handle/      Integer-handle registry for type-erased foreign callers
//	└── cmd/memprobe Scenario runner and live-allocation TUI
//
// # Quick Start
//
// Own a slab allocation and dispose of it on scope exit:
//
//	slab := alloc.NewSlab()
//	defer slab.Close()
//
//	box, err := ownptr.NewBox(slab, Session{ID: 7})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	u := ownptr.FromBox(box)
//	defer u.Close()
//
//	u.Get().ID = 8 // typed access, no ownership change
//
// # Ownership Lifecycle
//
// A Unique is constructed owning and stays owning until exactly one of two
// things happens:
//
//   - Close: payload teardown runs (if the payload implements Dropper),
//     then the deleter reclaims storage. Teardown strictly precedes
//     reclamation so it still sees valid backing memory.
//   - Release: the raw address is handed back to the caller and disposal is
//     permanently suppressed. The transition is terminal.
//
// Construction offers two policies for the one failure mode the core has, a
// nil address: New panics (contract violation upstream), TryNew reports
// absence. Everything else (Cast, Swap, Release, Close) is infallible given
// the stated invariants.
//
// # Deleters
//
// Disposal strategies are values implementing Deleter:
//
//	ownptr.NopDeleter{}            // non-owning view, reclaims nothing
//	ownptr.DeleteFunc(f)           // forwards the raw address to f
//	ownptr.AllocDeleter{Alloc: a}  // frees by layout recomputed from the type
//
// DisposeFunc[T] erases the static type into a plain address-taking
// function, for external APIs that cannot carry type information. Type
// fidelity then becomes the caller's obligation; handing such a function an
// address allocated under a different type is undefined behavior.
//
// # Dynamically-Sized Payloads
//
// UniqueSlice[T] is the fat-pointer form: address and element count travel
// together, and Close tears elements down front to back before freeing the
// block under the derived array layout.
//
// # Safety Model
//
// The wrapper propagates, and never fabricates, concurrency guarantees: a
// Unique may cross goroutines or be shared read-only exactly when its
// payload and deleter may. There is no internal locking and no runtime
// ownership checking; the single-owner invariant is carried by the API shape
// (Release consumes, Close is idempotent) and by documented caller
// obligations.
package ownptr
