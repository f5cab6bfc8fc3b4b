package guest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

var (
	// ErrNoAllocator is returned when a module exports neither a
	// malloc/free pair nor a cabi_realloc function.
	ErrNoAllocator = errors.New("guest: module exports no allocator")

	// ErrNullAlloc is returned when the guest allocator hands back offset 0.
	ErrNullAlloc = errors.New("guest: allocator returned null")
)

// Allocator allocates and frees guest linear memory. Addresses are offsets
// into the module's memory.
type Allocator interface {
	// Alloc returns the offset of a new block.
	Alloc(size, align uint32) (uint32, error)

	// Free returns a block to the guest. Size and align must equal the
	// values used to allocate the offset.
	Free(ptr, size, align uint32)
}

// ExportedAllocator drives a module's exported malloc/free pair. Alignment
// is not forwarded: a C-style malloc returns maximally aligned blocks, and
// align is accepted only to keep call sites symmetric with the realloc
// discipline.
type ExportedAllocator struct {
	ctx    context.Context
	malloc api.Function
	free   api.Function
}

// NewExported wraps a malloc function and an optional free function. A nil
// free makes Free a no-op, for guests with leak-and-reset heaps.
func NewExported(ctx context.Context, malloc, free api.Function) *ExportedAllocator {
	return &ExportedAllocator{ctx: ctx, malloc: malloc, free: free}
}

// Alloc calls the guest's malloc.
func (a *ExportedAllocator) Alloc(size, align uint32) (uint32, error) {
	results, err := a.malloc.Call(a.ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("guest: malloc(%d): %w", size, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest: malloc(%d) returned no result", size)
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, ErrNullAlloc
	}
	return ptr, nil
}

// Free calls the guest's free. Offset 0 is ignored.
func (a *ExportedAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 || a.free == nil {
		return
	}
	if _, err := a.free.Call(a.ctx, uint64(ptr)); err != nil {
		// Disposal has no recoverable channel; record and move on.
		Logger().Error("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// ReallocAllocator drives a single cabi_realloc-shaped export:
// alloc is realloc(0, 0, align, size), free is realloc(ptr, size, align, 0).
type ReallocAllocator struct {
	ctx context.Context
	fn  api.Function
}

// NewRealloc wraps a cabi_realloc-shaped function.
func NewRealloc(ctx context.Context, fn api.Function) *ReallocAllocator {
	return &ReallocAllocator{ctx: ctx, fn: fn}
}

// Alloc allocates through the realloc entry point.
func (a *ReallocAllocator) Alloc(size, align uint32) (uint32, error) {
	results, err := a.fn.Call(a.ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, fmt.Errorf("guest: realloc(%d, %d): %w", size, align, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest: realloc(%d, %d) returned no result", size, align)
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, ErrNullAlloc
	}
	return ptr, nil
}

// Free frees through the realloc entry point by shrinking to zero.
func (a *ReallocAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if _, err := a.fn.Call(a.ctx, uint64(ptr), uint64(size), uint64(align), 0); err != nil {
		Logger().Error("guest realloc free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// Detect picks the allocator discipline a module exports: cabi_realloc when
// present, otherwise a malloc/free pair. Every address allocated through
// the returned Allocator must be freed through it as well; the disciplines
// are not interchangeable for the same address.
func Detect(ctx context.Context, mod api.Module) (Allocator, error) {
	if fn := mod.ExportedFunction("cabi_realloc"); fn != nil {
		Logger().Debug("guest allocator detected",
			zap.String("module", mod.Name()),
			zap.String("discipline", "cabi_realloc"))
		return NewRealloc(ctx, fn), nil
	}
	if malloc := mod.ExportedFunction("malloc"); malloc != nil {
		Logger().Debug("guest allocator detected",
			zap.String("module", mod.Name()),
			zap.String("discipline", "malloc/free"))
		return NewExported(ctx, malloc, mod.ExportedFunction("free")), nil
	}
	return nil, ErrNoAllocator
}
