package ownptr

import (
	"reflect"
	"unsafe"
)

// Type is a runtime type descriptor: the static type information an
// allocator-aware deleter needs at disposal time, carried in value form so it
// survives type erasure. It records the payload's layout, its name for
// diagnostics, and a teardown thunk for payloads implementing Dropper.
type Type struct {
	Size  uintptr
	Align uintptr
	Name  string
	drop  func(unsafe.Pointer)
}

// TypeOf builds the descriptor for T. The teardown thunk is set when *T
// implements Dropper.
func TypeOf[T any]() Type {
	var zero T
	t := Type{
		Size:  unsafe.Sizeof(zero),
		Align: unsafe.Alignof(zero),
		Name:  reflect.TypeOf(&zero).Elem().String(),
	}
	if _, ok := any(&zero).(Dropper); ok {
		t.drop = func(addr unsafe.Pointer) {
			any((*T)(addr)).(Dropper).Drop()
		}
	}
	return t
}

// Layout returns the allocation layout for the described type.
func (t Type) Layout() Layout {
	return Layout{Size: t.Size, Align: t.Align}
}

// HasDrop reports whether the described type carries non-trivial teardown.
func (t Type) HasDrop() bool {
	return t.drop != nil
}

// RunDrop runs the payload teardown in place. No-op for trivial types and
// nil addresses. The backing memory must still be valid: teardown always
// precedes reclamation.
func (t Type) RunDrop(addr unsafe.Pointer) {
	if t.drop != nil && addr != nil {
		t.drop(addr)
	}
}

// ArrayOf derives the descriptor for n contiguous values of the described
// type, as owned by a fat pointer. Teardown of the derived type is handled
// element-wise by the owner, so the thunk is not carried over.
func (t Type) ArrayOf(n int) Type {
	return Type{
		Size:  t.Size * uintptr(n),
		Align: t.Align,
		Name:  "[]" + t.Name,
	}
}
