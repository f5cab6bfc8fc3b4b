package guest

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type block struct {
	size  uint32
	align uint32
}

// Tracking wraps an Allocator and records every live guest block. Freeing
// an offset the wrapper never handed out, or freeing it under a different
// size or alignment, is logged and aborts: the guest heap cannot survive
// asymmetric bookkeeping.
//
// Tracking is safe for concurrent use if the wrapped allocator is, though
// guest allocators normally follow the module's single-threaded discipline.
type Tracking struct {
	inner  Allocator
	log    *zap.Logger
	mu     sync.Mutex
	live   map[uint32]block
	allocs uint64
	frees  uint64
}

// NewTracking wraps inner. A nil logger means the package logger.
func NewTracking(inner Allocator, log *zap.Logger) *Tracking {
	if log == nil {
		log = Logger()
	}
	return &Tracking{
		inner: inner,
		log:   log,
		live:  make(map[uint32]block),
	}
}

// Alloc forwards to the guest and records the block.
func (t *Tracking) Alloc(size, align uint32) (uint32, error) {
	off, err := t.inner.Alloc(size, align)
	if err != nil {
		t.log.Error("guest alloc failed",
			zap.Uint32("size", size),
			zap.Uint32("align", align),
			zap.Error(err))
		return 0, err
	}

	t.mu.Lock()
	t.allocs++
	t.live[off] = block{size: size, align: align}
	t.mu.Unlock()

	t.log.Debug("guest alloc",
		zap.Uint32("offset", off),
		zap.Uint32("size", size),
		zap.Uint32("align", align))
	return off, nil
}

// Free checks the block against the ledger, forwards to the guest and
// forgets it.
func (t *Tracking) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	t.mu.Lock()
	got, ok := t.live[ptr]
	if !ok {
		t.mu.Unlock()
		t.log.Error("free of untracked guest address", zap.Uint32("offset", ptr))
		panic(fmt.Sprintf("guest: free of untracked address 0x%x (double free or foreign offset)", ptr))
	}
	if got.size != size || got.align != align {
		t.mu.Unlock()
		t.log.Error("guest free mismatch",
			zap.Uint32("offset", ptr),
			zap.Uint32("alloc_size", got.size),
			zap.Uint32("free_size", size))
		panic(fmt.Sprintf("guest: free of 0x%x with size=%d align=%d, allocated as size=%d align=%d",
			ptr, size, align, got.size, got.align))
	}
	delete(t.live, ptr)
	t.frees++
	t.mu.Unlock()

	t.inner.Free(ptr, size, align)
	t.log.Debug("guest free", zap.Uint32("offset", ptr), zap.Uint32("size", size))
}

// Live returns the number of outstanding guest blocks.
func (t *Tracking) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Allocs returns the total allocation count.
func (t *Tracking) Allocs() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocs
}

// Frees returns the total free count.
func (t *Tracking) Frees() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frees
}

// Each iterates over the live blocks.
func (t *Tracking) Each(fn func(off, size, align uint32) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for off, b := range t.live {
		if !fn(off, b.size, b.align) {
			return
		}
	}
}

// CheckLeaks returns an error naming the number of live blocks, or nil.
func (t *Tracking) CheckLeaks() error {
	if n := t.Live(); n != 0 {
		return fmt.Errorf("guest: %d blocks still live", n)
	}
	return nil
}
