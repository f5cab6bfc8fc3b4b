package ownptr

import (
	"testing"
	"unsafe"
)

func TestBox_AdoptReleaseRoundTrip(t *testing.T) {
	ha := newHeapAllocator()

	box, err := NewBox(ha, uint64(7))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	original := box.Value()

	u := FromBox(box)
	if u.Get() != original {
		t.Fatal("adoption changed the address")
	}
	if box.Value() != nil {
		t.Fatal("box not consumed by FromBox")
	}

	back := u.IntoBox()
	if back.Value() != original || *back.Value() != 7 {
		t.Fatalf("round trip yielded %v at %p, want 7 at %p", *back.Value(), back.Value(), original)
	}

	back.Close()
	if ha.frees != 1 {
		t.Fatalf("allocator saw %d frees across the round trip, want 1", ha.frees)
	}
	// Close on the consumed source must not free again.
	u.Close()
	back.Close()
	if ha.frees != 1 {
		t.Fatalf("double reclamation: %d frees", ha.frees)
	}
}

func TestBox_CloseRunsTeardownThenFree(t *testing.T) {
	ha := newHeapAllocator()
	done := false

	box, err := NewBox(ha, tornDown{flag: &done})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	box.Close()

	if !done {
		t.Fatal("payload teardown did not run")
	}
	if ha.frees != 1 {
		t.Fatalf("allocator saw %d frees, want 1", ha.frees)
	}
	if len(ha.blocks) != 0 {
		t.Fatalf("%d blocks still live", len(ha.blocks))
	}
}

func TestBox_CloneProducesNewAddress(t *testing.T) {
	ha := newHeapAllocator()

	box, err := NewBox(ha, uint32(99))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	clone, err := box.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if clone.Value() == box.Value() {
		t.Fatal("clone shares the original address")
	}
	if *clone.Value() != 99 {
		t.Fatalf("clone content = %d, want 99", *clone.Value())
	}

	*clone.Value() = 1
	if *box.Value() != 99 {
		t.Fatal("mutating the clone reached the original")
	}

	box.Close()
	clone.Close()
	if ha.allocs != ha.frees {
		t.Fatalf("allocation asymmetry: %d allocs, %d frees", ha.allocs, ha.frees)
	}
}

type deepPayload struct {
	n     int
	grabs *int
}

func (p *deepPayload) CloneInto(dst unsafe.Pointer) {
	*p.grabs++
	*(*deepPayload)(dst) = deepPayload{n: p.n, grabs: p.grabs}
}

func TestBox_CloneUsesCloner(t *testing.T) {
	ha := newHeapAllocator()
	grabs := 0

	box, err := NewBox(ha, deepPayload{n: 5, grabs: &grabs})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	clone, err := box.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	defer box.Close()
	defer clone.Close()

	if grabs != 1 {
		t.Fatalf("CloneInto invoked %d times, want 1", grabs)
	}
	if clone.Value().n != 5 {
		t.Fatalf("deep clone content = %d, want 5", clone.Value().n)
	}
}

func TestRebox_ReconstructsHandle(t *testing.T) {
	ha := newHeapAllocator()

	box, err := NewBox(ha, int16(3))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	p, _ := box.take()
	addr := unsafe.Pointer(p)

	re := Rebox[int16](ha, addr)
	if *re.Value() != 3 {
		t.Fatalf("reboxed content = %d, want 3", *re.Value())
	}
	re.Close()
	if ha.frees != 1 {
		t.Fatalf("reboxed handle freed %d times, want 1", ha.frees)
	}

	if Rebox[int16](ha, nil) != nil {
		t.Fatal("Rebox(nil) produced a handle")
	}
}

func TestIntoBox_PanicsWithoutAllocator(t *testing.T) {
	var v int
	u := FromRef(&v)
	defer func() {
		if recover() == nil {
			t.Fatal("IntoBox on a borrowed view did not panic")
		}
	}()
	u.IntoBox()
}

func TestEndToEnd_AllocatorAwareVersusBorrowed(t *testing.T) {
	ha := newHeapAllocator()

	// Allocator-aware: teardown runs and the block is reclaimed.
	done := false
	box, err := NewBox(ha, tornDown{flag: &done})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	u := FromBox(box)
	u.Close()
	if !done {
		t.Fatal("allocator-aware path skipped teardown")
	}
	if ha.frees != 1 {
		t.Fatalf("allocator-aware path freed %d times, want 1", ha.frees)
	}

	// Borrowed view: teardown runs, reclamation is skipped, and no
	// double-reclamation fault follows.
	done = false
	value := tornDown{flag: &done}
	view := FromRef(&value)
	view.Close()
	if !done {
		t.Fatal("borrowed path skipped teardown")
	}
	if ha.frees != 1 {
		t.Fatal("borrowed path reached the allocator")
	}
}
