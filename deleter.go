package ownptr

import "unsafe"

// NopDeleter reclaims nothing. It models a pointer that observes but does
// not own: payload teardown still runs on Close, only reclamation is
// skipped.
type NopDeleter struct{}

// Delete implements Deleter.
func (NopDeleter) Delete(Type, unsafe.Pointer) {}

// DeleteFunc adapts a plain function to the Deleter interface. The type
// descriptor is deliberately not forwarded: the function receives only the
// raw address, and the caller bears the type-erasure risk. Stateful closures
// satisfy the contract the same way.
type DeleteFunc func(addr unsafe.Pointer)

// Delete implements Deleter.
func (f DeleteFunc) Delete(_ Type, addr unsafe.Pointer) {
	f(addr)
}

// AllocDeleter returns storage to the Allocator that produced it, using the
// layout recomputed from the type descriptor. The address must have been
// allocated by the same Allocator under the same layout; anything else is
// undefined behavior.
type AllocDeleter struct {
	Alloc Allocator
}

// Delete implements Deleter.
func (d AllocDeleter) Delete(t Type, addr unsafe.Pointer) {
	if addr == nil {
		return
	}
	d.Alloc.Free(addr, t.Layout())
}

// BoxDeleter reclaims storage by rebuilding the Box handle the address was
// originally produced as and consuming it. Teardown is the owning wrapper's
// step and has already run by the time any deleter fires, so the rebuilt
// handle is taken apart and freed directly; closing it instead would run the
// payload teardown a second time.
//
// Apply only to addresses produced by NewBox (or released out of one) under
// the same T and allocator.
type BoxDeleter[T any] struct {
	Alloc Allocator
}

// Delete implements Deleter.
func (d BoxDeleter[T]) Delete(t Type, addr unsafe.Pointer) {
	b := Rebox[T](d.Alloc, addr)
	if b == nil {
		return
	}
	p, a := b.take()
	a.Free(unsafe.Pointer(p), t.Layout())
}

// Dispose is the stand-alone allocator-aware disposal routine: teardown in
// place, then free by the layout of T. It serves addresses that never went
// through an owning wrapper, for callers that only hold a raw address.
//
// The address must point at an initialized T allocated from a under
// LayoutOf[T]; supplying a different T than the one allocated is undefined
// behavior.
func Dispose[T any](a Allocator, addr unsafe.Pointer) {
	if addr == nil {
		return
	}
	t := TypeOf[T]()
	g := OnExit(func() { a.Free(addr, t.Layout()) })
	defer g.Run()
	t.RunDrop(addr)
}

// DisposeFunc erases T into a DeleteFunc wrapping Dispose. It is the
// conversion point for external function-pointer APIs that can only carry an
// address: hand them the returned function, and type fidelity becomes their
// obligation.
//
// Do not install the result in an owning wrapper; the wrapper already runs
// teardown before its deleter, and Dispose would run it a second time.
func DisposeFunc[T any](a Allocator) DeleteFunc {
	return func(addr unsafe.Pointer) {
		Dispose[T](a, addr)
	}
}
