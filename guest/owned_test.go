package guest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwned_Lifecycle(t *testing.T) {
	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	tr := NewTracking(inner, nil)
	mem := mod.ExportedMemory("memory")

	o, err := Alloc(tr, mem, 16, 4)
	require.NoError(t, err)
	require.True(t, o.Owning())
	require.Equal(t, uint32(16), o.Len())

	require.NoError(t, o.Write([]byte("hello guest")))
	view, err := o.Bytes()
	require.NoError(t, err)
	require.Equal(t, "hello guest", string(view[:11]))

	o.Close()
	require.False(t, o.Owning())
	require.NoError(t, tr.CheckLeaks())

	o.Close() // second Close is a no-op
	require.Equal(t, uint64(1), tr.Frees())
}

func TestOwned_ReleaseSuppressesFree(t *testing.T) {
	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	tr := NewTracking(inner, nil)
	mem := mod.ExportedMemory("memory")

	o, err := Alloc(tr, mem, 32, 8)
	require.NoError(t, err)
	wantOff := o.Offset()

	off, size := o.Release()
	require.Equal(t, wantOff, off)
	require.Equal(t, uint32(32), size)
	require.False(t, o.Owning())

	o.Close()
	require.Equal(t, uint64(0), tr.Frees(), "disposal ran after Release")
	require.Equal(t, 1, tr.Live())

	// The caller now owns the fat pointer and settles it directly.
	tr.Free(off, size, 8)
	require.NoError(t, tr.CheckLeaks())
}

func TestOwn_NullOffset(t *testing.T) {
	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	mem := mod.ExportedMemory("memory")

	_, err = Own(inner, mem, 0, 8, 1)
	require.ErrorIs(t, err, ErrNullAddress)

	require.Panics(t, func() {
		MustOwn(inner, mem, 0, 8, 1)
	})
}

func TestAllocBytes_RoundTrip(t *testing.T) {
	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	mem := mod.ExportedMemory("memory")

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	o, err := AllocBytes(inner, mem, data)
	require.NoError(t, err)
	defer o.Close()

	view, err := o.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, view)
}

func TestAllocBytes_RejectsOversized(t *testing.T) {
	if math.MaxInt == math.MaxInt32 {
		t.Skip("len cannot exceed the guest address space on 32-bit hosts")
	}

	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	tr := NewTracking(inner, nil)
	mem := mod.ExportedMemory("memory")

	// The slice is never written, so the backing pages stay untouched; the
	// size check must fire before anything reaches the guest allocator.
	n := int64(math.MaxUint32) + 1
	data := make([]byte, int(n))

	_, err = AllocBytes(tr, mem, data)
	require.Error(t, err)
	require.Equal(t, uint64(0), tr.Allocs(), "oversized payload reached the guest")
}

func TestOwned_Swap(t *testing.T) {
	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	tr := NewTracking(inner, nil)
	mem := mod.ExportedMemory("memory")

	a, err := Alloc(tr, mem, 8, 1)
	require.NoError(t, err)
	b, err := Alloc(tr, mem, 24, 1)
	require.NoError(t, err)

	offA, offB := a.Offset(), b.Offset()
	a.Swap(b)

	require.Equal(t, offB, a.Offset())
	require.Equal(t, uint32(24), a.Len())
	require.Equal(t, offA, b.Offset())
	require.Equal(t, uint32(8), b.Len())

	a.Close()
	b.Close()
	require.NoError(t, tr.CheckLeaks())
}

func TestOwned_OutOfBounds(t *testing.T) {
	mod, done := instantiate(t, bumpWASM)
	defer done()

	inner, err := Detect(context.Background(), mod)
	require.NoError(t, err)
	mem := mod.ExportedMemory("memory")

	// One page is 64KiB; a block claiming to extend past it cannot be read.
	o, err := Own(inner, mem, 65000, 4096, 1)
	require.NoError(t, err)

	_, err = o.Bytes()
	require.ErrorIs(t, err, ErrOutOfBounds)

	err = o.Write(make([]byte, 4096))
	require.ErrorIs(t, err, ErrOutOfBounds)

	// Avoid feeding the fixture's no-op free a bogus offset anyway.
	o.Release()
}
