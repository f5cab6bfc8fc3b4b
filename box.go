package ownptr

import (
	"fmt"
	"unsafe"
)

// Box is an allocator-produced typed handle: a *T paired with the Allocator
// that produced it. It is the reconstruction target for allocator-aware
// disposal and the only duplication path in the package. Box and
// AllocDeleter share one discipline: storage is always freed with the same
// layout it was allocated under.
type Box[T any] struct {
	ptr *T
	a   Allocator
}

// NewBox allocates storage for T from a and placement-copies v into it.
func NewBox[T any](a Allocator, v T) (*Box[T], error) {
	t := TypeOf[T]()
	addr, err := a.Alloc(t.Layout())
	if err != nil {
		return nil, fmt.Errorf("ownptr: box alloc %s: %w", t.Name, err)
	}
	p := (*T)(addr)
	*p = v
	return &Box[T]{ptr: p, a: a}, nil
}

// Rebox reconstructs a Box from a raw address previously produced by NewBox
// (or released out of one) under the same T and the same allocator.
// Supplying a different type or allocator than the original is undefined
// behavior.
func Rebox[T any](a Allocator, addr unsafe.Pointer) *Box[T] {
	if addr == nil {
		return nil
	}
	return &Box[T]{ptr: (*T)(addr), a: a}
}

// Value returns the typed address of the boxed payload.
func (b *Box[T]) Value() *T {
	return b.ptr
}

// Allocator returns the allocator that produced the box.
func (b *Box[T]) Allocator() Allocator {
	return b.a
}

// Close runs the payload teardown and returns the storage to the allocator,
// exactly once. No-op on a nil or consumed box.
func (b *Box[T]) Close() {
	if b == nil || b.ptr == nil {
		return
	}
	addr := unsafe.Pointer(b.ptr)
	a := b.a
	b.ptr = nil
	b.a = nil

	t := TypeOf[T]()
	g := OnExit(func() { a.Free(addr, t.Layout()) })
	defer g.Run()
	t.RunDrop(addr)
}

// Clone duplicates the payload into a brand-new allocation from the same
// allocator. Payloads implementing Cloner get deep duplication; everything
// else is copied by value.
func (b *Box[T]) Clone() (*Box[T], error) {
	t := TypeOf[T]()
	addr, err := b.a.Alloc(t.Layout())
	if err != nil {
		return nil, fmt.Errorf("ownptr: box clone %s: %w", t.Name, err)
	}
	if c, ok := any(b.ptr).(Cloner); ok {
		c.CloneInto(addr)
	} else {
		*(*T)(addr) = *b.ptr
	}
	return &Box[T]{ptr: (*T)(addr), a: b.a}, nil
}

// take consumes the box without disposing, handing its parts to a new owner.
func (b *Box[T]) take() (*T, Allocator) {
	p, a := b.ptr, b.a
	b.ptr = nil
	b.a = nil
	return p, a
}

// FromBox adopts an allocator-produced handle into an owning pointer,
// installing the allocator-aware deleter. The box is consumed.
func FromBox[T any](b *Box[T]) Unique[T] {
	p, a := b.take()
	return New(p, AllocDeleter{Alloc: a})
}

// IntoBox is the inverse conversion: release plus reconstruction of the
// allocator handle. Panics if the instance was not adopted from an
// allocator-backed source, since no allocator is known to rebuild the handle
// against.
func (u *Unique[T]) IntoBox() *Box[T] {
	p, d := u.ReleaseDeleter()
	switch ad := d.(type) {
	case AllocDeleter:
		return &Box[T]{ptr: p, a: ad.Alloc}
	case BoxDeleter[T]:
		return &Box[T]{ptr: p, a: ad.Alloc}
	}
	panic("ownptr: IntoBox on a pointer without an allocator-aware deleter")
}
