package handle

import (
	"errors"
	"sync"

	"github.com/wippyai/ownptr"
)

// Handle is an opaque reference to a registered resource. Handle 0 is
// reserved and always invalid.
type Handle uint32

var ErrClosed = errors.New("handle: table closed")

type entry struct {
	value   any
	dispose func()
	typeID  uint32
	valid   bool
}

// Table maps integer handles to host values and their disposal routines.
// Dispose runs a routine at most once per registration; slots are recycled
// through a free list.
//
// Table is safe for concurrent use. Disposal routines run outside the table
// lock, so they may re-enter the table.
type Table struct {
	mu       sync.Mutex
	entries  []entry
	freeList []Handle
	closed   bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Register stores a value with its disposal routine and returns its handle.
// A nil dispose is allowed for entries that only need lookup.
func (t *Table) Register(typeID uint32, value any, dispose func()) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	e := entry{value: value, dispose: dispose, typeID: typeID, valid: true}

	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[h-1] = e
		return h, nil
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries)), nil
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	return t.entries[idx].value, true
}

// GetTyped retrieves a value only if it was registered under the expected
// type ID.
func (t *Table) GetTyped(h Handle, typeID uint32) (any, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid || t.entries[idx].typeID != typeID {
		return nil, false
	}
	return t.entries[idx].value, true
}

// Dispose runs the registered disposal routine exactly once and recycles
// the slot. Reports whether the handle was live.
//
// The slot returns to the free list only after the routine finishes, so a
// concurrent Register can never reissue the handle while its predecessor's
// disposal is still in flight.
func (t *Table) Dispose(h Handle) bool {
	if h == 0 {
		return false
	}

	t.mu.Lock()
	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		t.mu.Unlock()
		return false
	}
	dispose := t.entries[idx].dispose
	t.entries[idx] = entry{}
	t.mu.Unlock()

	if dispose != nil {
		dispose()
	}

	t.mu.Lock()
	if !t.closed {
		t.freeList = append(t.freeList, h)
	}
	t.mu.Unlock()
	return true
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for i := range t.entries {
		if t.entries[i].valid {
			count++
		}
	}
	return count
}

// Close disposes every live entry and stops accepting registrations.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var pending []func()
	for i := range t.entries {
		if t.entries[i].valid && t.entries[i].dispose != nil {
			pending = append(pending, t.entries[i].dispose)
		}
		t.entries[i] = entry{}
	}
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	for _, dispose := range pending {
		dispose()
	}
	return nil
}

// Export registers an owning pointer's value and disposal under a handle,
// so the foreign side can close it by integer. The Unique must stay where
// it is for the handle's lifetime; disposing the handle closes it.
func Export[T any](t *Table, typeID uint32, u *ownptr.Unique[T]) (Handle, error) {
	return t.Register(typeID, u.Get(), u.Close)
}
