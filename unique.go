package ownptr

import (
	"fmt"
	"unsafe"
)

// Unique owns a single non-null address and disposes of it exactly once.
//
// A live Unique is always in one of two states: owning (disposal pending) or
// released (disposal permanently suppressed). Construction always yields an
// owning instance; Release is the only transition out, and it is terminal.
//
// Unique is move-only. Copying a live instance duplicates the disposal
// obligation and breaks the single-owner invariant; transfer ownership with
// Release, Swap, or by handing over the variable itself. A Unique is safe to
// hand across goroutines, or to share for concurrent reads, exactly when the
// payload and the deleter are; the wrapper adds no synchronization and no
// guarantees of its own.
//
// Close never runs implicitly. The idiom is the usual one:
//
//	u := ownptr.New(p, del)
//	defer u.Close()
type Unique[T any] struct {
	ptr unsafe.Pointer
	del Deleter
}

// New creates an owning pointer from a raw address and a deleter. It panics
// if ptr is nil: this is the trusting constructor for call sites that have
// already proven non-nullness. A nil deleter defaults to NopDeleter.
func New[T any](ptr *T, d Deleter) Unique[T] {
	u, ok := TryNew(ptr, d)
	if !ok {
		panic("ownptr: New called with nil address")
	}
	return u
}

// TryNew is the checked constructor: it reports absence instead of panicking
// when ptr is nil. No deleter is invoked on the absent path.
func TryNew[T any](ptr *T, d Deleter) (Unique[T], bool) {
	if ptr == nil {
		return Unique[T]{}, false
	}
	if d == nil {
		d = NopDeleter{}
	}
	return Unique[T]{ptr: unsafe.Pointer(ptr), del: d}, true
}

// FromRef wraps a borrowed reference as a non-owning view: teardown runs on
// Close, reclamation never does. Panics if ptr is nil.
func FromRef[T any](ptr *T) Unique[T] {
	return New(ptr, NopDeleter{})
}

// Get returns the typed address. Observation only: ownership is unaffected
// and repeated calls return the same address. Unchecked fast path; the
// result is invalid after Release or Close.
func (u *Unique[T]) Get() *T {
	return (*T)(u.ptr)
}

// Addr returns the raw address.
func (u *Unique[T]) Addr() unsafe.Pointer {
	return u.ptr
}

// Deleter returns the installed disposal strategy.
func (u *Unique[T]) Deleter() Deleter {
	return u.del
}

// Owning reports whether disposal is still pending, i.e. the instance has
// not been released or closed.
func (u *Unique[T]) Owning() bool {
	return u.ptr != nil
}

// Cast reinterprets the stored address as pointing to U. Purely a
// bit-preserving view change: nothing is validated, ownership does not move,
// and the caller must guarantee representation compatibility.
func Cast[U, T any](u *Unique[T]) *U {
	return (*U)(u.ptr)
}

// CastConst is the read-only variant of Cast. Go cannot express const
// pointers, so the restriction is contractual: callers must not write
// through the result.
func CastConst[U, T any](u *Unique[T]) *U {
	return (*U)(u.ptr)
}

// Swap exchanges addresses and deleters between two instances in constant
// time. Both remain valid owners of their new resources; no disposal is
// triggered.
func (u *Unique[T]) Swap(other *Unique[T]) {
	u.ptr, other.ptr = other.ptr, u.ptr
	u.del, other.del = other.del, u.del
}

// Release permanently disarms disposal and hands the raw address back to the
// caller, who now owns it through some other mechanism. The instance is
// consumed: after Release it is no longer usable.
func (u *Unique[T]) Release() *T {
	p, _ := u.ReleaseDeleter()
	return p
}

// ReleaseDeleter is Release plus the stored deleter, for callers that take
// over the disposal strategy along with the address.
func (u *Unique[T]) ReleaseDeleter() (*T, Deleter) {
	p := (*T)(u.ptr)
	d := u.del
	u.ptr = nil
	u.del = nil
	return p, d
}

// Close destroys the instance: payload teardown first, deleter reclamation
// second, so teardown still sees valid backing memory. Runs at most once;
// no-op after Release or a previous Close. The reclaim step is guarded, so
// it runs even if teardown panics.
func (u *Unique[T]) Close() {
	if u.ptr == nil {
		return
	}
	addr := u.ptr
	del := u.del
	u.ptr = nil
	u.del = nil

	t := TypeOf[T]()
	g := OnExit(func() { del.Delete(t, addr) })
	defer g.Run()
	t.RunDrop(addr)
}

// String formats the owned address, released instances as <released>.
func (u *Unique[T]) String() string {
	if u.ptr == nil {
		return "<released>"
	}
	return fmt.Sprintf("%p", u.ptr)
}
