package ownptr

import "unsafe"

// UniqueSlice owns n contiguous elements of T behind a single allocation.
// It is the fat-pointer form of Unique: the address and the element count
// travel together, because a bare address cannot describe a
// dynamically-sized payload. Lifecycle rules are those of Unique.
type UniqueSlice[T any] struct {
	ptr unsafe.Pointer
	n   int
	del Deleter
}

// NewSlice creates an owning fat pointer over n elements starting at ptr.
// Panics if ptr is nil or n is negative.
func NewSlice[T any](ptr *T, n int, d Deleter) UniqueSlice[T] {
	s, ok := TrySlice(ptr, n, d)
	if !ok {
		panic("ownptr: NewSlice called with nil address or negative count")
	}
	return s
}

// TrySlice is the checked fat-pointer constructor.
func TrySlice[T any](ptr *T, n int, d Deleter) (UniqueSlice[T], bool) {
	if ptr == nil || n < 0 {
		return UniqueSlice[T]{}, false
	}
	if d == nil {
		d = NopDeleter{}
	}
	return UniqueSlice[T]{ptr: unsafe.Pointer(ptr), n: n, del: d}, true
}

// AllocSlice allocates n elements of T from a and owns them with the
// allocator-aware deleter.
func AllocSlice[T any](a Allocator, n int) (UniqueSlice[T], error) {
	t := TypeOf[T]().ArrayOf(n)
	addr, err := a.Alloc(t.Layout())
	if err != nil {
		return UniqueSlice[T]{}, err
	}
	return UniqueSlice[T]{ptr: addr, n: n, del: AllocDeleter{Alloc: a}}, nil
}

// Elems returns the owned elements as a slice view. The view is valid only
// while the instance owns the storage.
func (s *UniqueSlice[T]) Elems() []T {
	if s.ptr == nil {
		return nil
	}
	return unsafe.Slice((*T)(s.ptr), s.n)
}

// Len returns the element count.
func (s *UniqueSlice[T]) Len() int {
	return s.n
}

// Addr returns the raw base address.
func (s *UniqueSlice[T]) Addr() unsafe.Pointer {
	return s.ptr
}

// Owning reports whether disposal is still pending.
func (s *UniqueSlice[T]) Owning() bool {
	return s.ptr != nil
}

// Swap exchanges the owned storage, counts and deleters of two instances.
func (s *UniqueSlice[T]) Swap(other *UniqueSlice[T]) {
	s.ptr, other.ptr = other.ptr, s.ptr
	s.n, other.n = other.n, s.n
	s.del, other.del = other.del, s.del
}

// Release disarms disposal and hands back both halves of the fat pointer.
// The instance is consumed.
func (s *UniqueSlice[T]) Release() (*T, int) {
	p := (*T)(s.ptr)
	n := s.n
	s.ptr = nil
	s.n = 0
	s.del = nil
	return p, n
}

// Close tears the elements down front to back, then reclaims the whole
// block through the deleter under the derived array layout. Runs at most
// once; no-op after Release.
func (s *UniqueSlice[T]) Close() {
	if s.ptr == nil {
		return
	}
	addr := s.ptr
	n := s.n
	del := s.del
	s.ptr = nil
	s.n = 0
	s.del = nil

	t := TypeOf[T]()
	g := OnExit(func() { del.Delete(t.ArrayOf(n), addr) })
	defer g.Run()
	if t.HasDrop() {
		for i := 0; i < n; i++ {
			t.RunDrop(unsafe.Add(addr, uintptr(i)*t.Size))
		}
	}
}
