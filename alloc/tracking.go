package alloc

import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ownptr"
)

// Tracking wraps an Allocator and records every live block keyed by address,
// together with the layout it was allocated under. Freeing an address the
// wrapper has never handed out, or freeing it under a different layout, is a
// bookkeeping violation: it is logged and then aborts, because continuing
// would leave the same address disposable twice.
//
// Tracking is safe for concurrent use if the wrapped allocator is.
type Tracking struct {
	inner  ownptr.Allocator
	log    *zap.Logger
	mu     sync.Mutex
	live   map[unsafe.Pointer]ownptr.Layout
	allocs uint64
	frees  uint64
}

// TrackingOption configures a Tracking allocator.
type TrackingOption func(*Tracking)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) TrackingOption {
	return func(t *Tracking) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTracking wraps inner.
func NewTracking(inner ownptr.Allocator, opts ...TrackingOption) *Tracking {
	t := &Tracking{
		inner: inner,
		log:   zap.NewNop(),
		live:  make(map[unsafe.Pointer]ownptr.Layout),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Alloc forwards to the wrapped allocator and records the block.
func (t *Tracking) Alloc(l ownptr.Layout) (unsafe.Pointer, error) {
	p, err := t.inner.Alloc(l)
	if err != nil {
		t.log.Error("alloc failed",
			zap.Uint64("size", uint64(l.Size)),
			zap.Uint64("align", uint64(l.Align)),
			zap.Error(err))
		return nil, err
	}

	t.mu.Lock()
	t.allocs++
	if l.Size != 0 {
		t.live[p] = l
	}
	t.mu.Unlock()

	t.log.Debug("alloc",
		zap.String("addr", fmt.Sprintf("%p", p)),
		zap.Uint64("size", uint64(l.Size)),
		zap.Uint64("align", uint64(l.Align)))
	return p, nil
}

// Free checks the block against the ledger, forwards to the wrapped
// allocator and forgets it.
func (t *Tracking) Free(p unsafe.Pointer, l ownptr.Layout) {
	if l.Size == 0 {
		t.mu.Lock()
		t.frees++
		t.mu.Unlock()
		t.inner.Free(p, l)
		return
	}

	t.mu.Lock()
	got, ok := t.live[p]
	if !ok {
		t.mu.Unlock()
		t.log.Error("free of untracked address", zap.String("addr", fmt.Sprintf("%p", p)))
		panic(fmt.Sprintf("alloc: free of untracked address %p (double free or foreign pointer)", p))
	}
	if got != l {
		t.mu.Unlock()
		t.log.Error("free layout mismatch",
			zap.String("addr", fmt.Sprintf("%p", p)),
			zap.Uint64("alloc_size", uint64(got.Size)),
			zap.Uint64("free_size", uint64(l.Size)))
		panic(fmt.Sprintf("alloc: free of %p with layout %+v, allocated as %+v", p, l, got))
	}
	delete(t.live, p)
	t.frees++
	t.mu.Unlock()

	t.inner.Free(p, l)
	t.log.Debug("free",
		zap.String("addr", fmt.Sprintf("%p", p)),
		zap.Uint64("size", uint64(l.Size)))
}

// Live returns the number of blocks currently outstanding.
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
func (t *Tracking) Each(fn func(addr unsafe.Pointer, l ownptr.Layout) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p, l := range t.live {
		if !fn(p, l) {
			return
		}
	}
}

// CheckLeaks returns an error naming the number of live blocks, or nil.
func (t *Tracking) CheckLeaks() error {
	if n := t.Live(); n != 0 {
		return fmt.Errorf("alloc: %d blocks still live", n)
	}
	return nil
}

// Close logs every leaked block and returns CheckLeaks. The wrapped
// allocator is not closed; that remains the owner's call.
func (t *Tracking) Close() error {
	t.Each(func(p unsafe.Pointer, l ownptr.Layout) bool {
		t.log.Warn("leaked block",
			zap.String("addr", fmt.Sprintf("%p", p)),
			zap.Uint64("size", uint64(l.Size)),
			zap.Uint64("align", uint64(l.Align)))
		return true
	})
	return t.CheckLeaks()
}
