package alloc

import (
	"errors"
	"unsafe"

	"github.com/wippyai/ownptr"
)

var ErrClosed = errors.New("alloc: slab closed")

const defaultChunkSize = 64 << 10

// Slab is a chunked slab allocator backed by Go heap blocks. Allocation
// bumps through the current chunk with alignment; Free pushes the block onto
// a per-layout free list so the next allocation of the same layout reuses
// it. Chunk memory is only returned to the collector by Close.
//
// Slab memory is untyped from the collector's point of view: payloads stored
// in it must not contain Go pointers unless the referents are kept alive
// elsewhere.
//
// Slab is not safe for concurrent use.
type Slab struct {
	chunkSize uintptr
	chunks    [][]byte
	cur       []byte
	off       uintptr
	free      map[ownptr.Layout][]unsafe.Pointer
	closed    bool
	zero      byte
}

// SlabOption configures a Slab.
type SlabOption func(*Slab)

// WithChunkSize sets the chunk size in bytes. Allocations larger than a
// chunk get a dedicated block.
func WithChunkSize(n int) SlabOption {
	return func(s *Slab) {
		if n > 0 {
			s.chunkSize = uintptr(n)
		}
	}
}

// NewSlab creates an empty slab. The first chunk is allocated lazily.
func NewSlab(opts ...SlabOption) *Slab {
	s := &Slab{
		chunkSize: defaultChunkSize,
		free:      make(map[ownptr.Layout][]unsafe.Pointer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Alloc returns the address of a block with the given layout.
func (s *Slab) Alloc(l ownptr.Layout) (unsafe.Pointer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	l = normalize(l)
	if l.Size == 0 {
		return unsafe.Pointer(&s.zero), nil
	}

	if list := s.free[l]; len(list) > 0 {
		p := list[len(list)-1]
		s.free[l] = list[:len(list)-1]
		return p, nil
	}

	// Oversized blocks get a dedicated chunk and never join the bump path.
	if l.Size+l.Align > s.chunkSize {
		buf := make([]byte, l.Size+l.Align)
		s.chunks = append(s.chunks, buf)
		return alignedStart(buf, l.Align), nil
	}

	for {
		if s.cur != nil {
			base := uintptr(unsafe.Pointer(&s.cur[0]))
			aligned := align(base+s.off, l.Align)
			if aligned+l.Size <= base+uintptr(len(s.cur)) {
				idx := aligned - base
				s.off = idx + l.Size
				return unsafe.Pointer(&s.cur[idx]), nil
			}
		}
		buf := make([]byte, s.chunkSize)
		s.chunks = append(s.chunks, buf)
		s.cur = buf
		s.off = 0
	}
}

// Free recycles a block for reuse under the same layout. The layout must
// equal the one used to allocate the address; the slab does not verify this
// (wrap it in Tracking to catch violations).
func (s *Slab) Free(p unsafe.Pointer, l ownptr.Layout) {
	if s.closed || p == nil {
		return
	}
	l = normalize(l)
	if l.Size == 0 {
		return
	}
	s.free[l] = append(s.free[l], p)
}

// Chunks returns the number of chunks currently held.
func (s *Slab) Chunks() int {
	return len(s.chunks)
}

// Close drops all chunks and free lists. Every address the slab ever handed
// out is invalid afterwards.
func (s *Slab) Close() {
	s.closed = true
	s.chunks = nil
	s.cur = nil
	s.off = 0
	s.free = nil
}

func normalize(l ownptr.Layout) ownptr.Layout {
	if l.Align == 0 {
		l.Align = 1
	}
	return l
}

func align(p, a uintptr) uintptr {
	return (p + a - 1) &^ (a - 1)
}

func alignedStart(buf []byte, a uintptr) unsafe.Pointer {
	base := uintptr(unsafe.Pointer(&buf[0]))
	return unsafe.Pointer(&buf[(a-base%a)%a])
}
