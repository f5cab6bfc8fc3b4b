package guest

import (
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

var (
	// ErrNullAddress is reported by the checked adoption path when the
	// offset is 0.
	ErrNullAddress = errors.New("guest: null guest address")

	// ErrOutOfBounds is returned when a block does not fit the module's
	// current memory.
	ErrOutOfBounds = errors.New("guest: address out of bounds")
)

// Owned is an owning fat pointer into guest linear memory: the offset and
// the block size travel together. It frees through its Allocator exactly
// once on Close, unless Release suppressed disposal first.
//
// Owned is move-only in the same sense as ownptr.Unique: transfer it by
// handing over the value, never by copying a live instance.
type Owned struct {
	mem   api.Memory
	alloc Allocator
	off   uint32
	size  uint32
	align uint32
}

// Own adopts an existing guest address. This is the checked path: offset 0
// reports ErrNullAddress and nothing is adopted. Size and align must be the
// values the block was allocated under.
func Own(a Allocator, mem api.Memory, off, size, align uint32) (*Owned, error) {
	if off == 0 {
		return nil, ErrNullAddress
	}
	if align == 0 {
		align = 1
	}
	return &Owned{mem: mem, alloc: a, off: off, size: size, align: align}, nil
}

// MustOwn is the trusting adoption path for call sites that have already
// proven the offset non-null. Panics on offset 0.
func MustOwn(a Allocator, mem api.Memory, off, size, align uint32) *Owned {
	o, err := Own(a, mem, off, size, align)
	if err != nil {
		panic(err)
	}
	return o
}

// Alloc allocates size bytes from a and owns them.
func Alloc(a Allocator, mem api.Memory, size, align uint32) (*Owned, error) {
	off, err := a.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	return Own(a, mem, off, size, align)
}

// AllocBytes allocates len(data) bytes and copies data into guest memory.
// Data larger than the 32-bit guest address space is rejected.
func AllocBytes(a Allocator, mem api.Memory, data []byte) (*Owned, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("guest: %d-byte payload exceeds the guest address space", len(data))
	}
	o, err := Alloc(a, mem, uint32(len(data)), 1)
	if err != nil {
		return nil, err
	}
	if err := o.Write(data); err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}

// Offset returns the guest address. Observation only.
func (o *Owned) Offset() uint32 {
	return o.off
}

// Len returns the block size in bytes.
func (o *Owned) Len() uint32 {
	return o.size
}

// Align returns the allocation alignment.
func (o *Owned) Align() uint32 {
	return o.align
}

// Owning reports whether disposal is still pending.
func (o *Owned) Owning() bool {
	return o.off != 0
}

// Bytes returns a view of the owned block. The view aliases guest memory
// and is valid only until the guest grows its memory or the block is freed.
func (o *Owned) Bytes() ([]byte, error) {
	if o.off == 0 {
		return nil, ErrNullAddress
	}
	view, ok := o.mem.Read(o.off, o.size)
	if !ok {
		return nil, fmt.Errorf("%w: offset=%d size=%d", ErrOutOfBounds, o.off, o.size)
	}
	return view, nil
}

// Write copies data into the owned block. Data longer than the block is
// rejected.
func (o *Owned) Write(data []byte) error {
	if o.off == 0 {
		return ErrNullAddress
	}
	if uint32(len(data)) > o.size {
		return fmt.Errorf("guest: write of %d bytes into %d-byte block", len(data), o.size)
	}
	if !o.mem.Write(o.off, data) {
		return fmt.Errorf("%w: offset=%d size=%d", ErrOutOfBounds, o.off, len(data))
	}
	return nil
}

// Swap exchanges the owned blocks of two instances, including allocator and
// memory bindings. Never triggers disposal.
func (o *Owned) Swap(other *Owned) {
	*o, *other = *other, *o
}

// Release permanently disarms disposal and hands back both halves of the
// fat pointer. The instance is consumed.
func (o *Owned) Release() (off, size uint32) {
	off, size = o.off, o.size
	o.off = 0
	o.size = 0
	return off, size
}

// Close frees the block through the allocator, exactly once. No-op after
// Release or a previous Close.
func (o *Owned) Close() {
	if o.off == 0 {
		return
	}
	off, size, align := o.off, o.size, o.align
	o.off = 0
	o.size = 0
	o.alloc.Free(off, size, align)
}

// String formats the fat pointer, released instances as <released>.
func (o *Owned) String() string {
	if o.off == 0 {
		return "<released>"
	}
	return fmt.Sprintf("guest:0x%x+%d", o.off, o.size)
}
