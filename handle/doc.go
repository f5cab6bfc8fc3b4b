// Package handle lets foreign code that can only carry an integer trigger a
// correct, exactly-once disposal.
//
// Type-erased boundaries (C callback opaque pointers, wasm i32 handles)
// cannot hold Go pointers or deleter values. A Table maps small integer
// handles to host values and their disposal routines; the foreign side keeps
// the integer, and Dispose(h) settles the obligation from any call path that
// can reach the table.
//
//	tbl := handle.NewTable()
//	h, _ := handle.Export(tbl, sessionType, &owned)
//	// hand h to the foreign side; later:
//	tbl.Dispose(h)
//
// Handles are typed: GetTyped rejects a handle registered under a different
// type ID, which is the only runtime check this layer adds. Slots are
// recycled through a free list, so a stale handle may alias a newer resource;
// the foreign side owns that discipline, exactly as it owns raw-address
// fidelity elsewhere in this module.
package handle
