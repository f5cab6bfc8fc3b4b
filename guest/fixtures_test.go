package guest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// bumpWASM is a minimal module with one page of memory and a bump allocator:
// malloc(size) returns the current heap pointer (starting at 16) and
// advances it; free(ptr) is a no-op.
//
//	(global $heap (mut i32) (i32.const 16))
//	(func (export "malloc") (param i32) (result i32)
//	  global.get $heap
//	  global.get $heap local.get 0 i32.add global.set $heap)
//	(func (export "free") (param i32))
var bumpWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	// type section: (i32)->i32, (i32)->()
	0x01, 0x0a, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	// function section: funcs 0 and 1 use types 0 and 1
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory section: 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global section: (mut i32) = 16
	0x06, 0x06, 0x01, 0x7f, 0x01, 0x41, 0x10, 0x0b,
	// export section: "memory", "malloc", "free"
	0x07, 0x1a, 0x03,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x06, 0x6d, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x00, 0x00,
	0x04, 0x66, 0x72, 0x65, 0x65, 0x00, 0x01,
	// code section
	0x0a, 0x10, 0x02,
	// malloc: global.get 0; global.get 0; local.get 0; i32.add; global.set 0
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	// free: empty body
	0x02, 0x00, 0x0b,
}

// reallocWASM exports the same bump heap behind a cabi_realloc-shaped
// entry point: realloc(old, oldsize, align, newsize) returns the current
// heap pointer and advances it by newsize.
var reallocWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	// type section: (i32,i32,i32,i32)->i32
	0x01, 0x09, 0x01,
	0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
	// function section
	0x03, 0x02, 0x01, 0x00,
	// memory section: 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global section: (mut i32) = 16
	0x06, 0x06, 0x01, 0x7f, 0x01, 0x41, 0x10, 0x0b,
	// export section: "memory", "cabi_realloc"
	0x07, 0x19, 0x02,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x0c, 0x63, 0x61, 0x62, 0x69, 0x5f, 0x72, 0x65, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x00, 0x00,
	// code section
	0x0a, 0x0d, 0x01,
	// realloc: global.get 0; global.get 0; local.get 3; i32.add; global.set 0
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x03, 0x6a, 0x24, 0x00, 0x0b,
}

// memoryOnlyWASM has memory but no allocator exports.
var memoryOnlyWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

func instantiate(t *testing.T, wasm []byte) (api.Module, func()) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)

	compiled, err := rt.CompileModule(ctx, wasm)
	require.NoError(t, err, "failed to compile fixture")

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	require.NoError(t, err, "failed to instantiate fixture")

	return mod, func() { _ = rt.Close(ctx) }
}
