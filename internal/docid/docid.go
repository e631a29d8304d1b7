// Package docid defines the dense arena-index identifier every other
// component keys on. Grounded on the teacher's types.FileID: a plain
// uint32 rather than an owning reference, so the import graph, the
// trigram postings, and the metadata table can all key on it cheaply
// and the whole index is trivially serializable (spec §9 "Document ids
// as arena indices").
package docid

// ID identifies a document for the lifetime of the process, and across
// save/load as long as the configuration fingerprint matches. Never
// reused once assigned.
type ID uint32

// Invalid is the all-ones sentinel; doc_id 0 is a valid id assigned
// by the allocator, so callers must use the boolean returned alongside
// an ID rather than comparing to Invalid except for "not yet assigned"
// state before the allocator has run.
const Invalid ID = ^ID(0)

// Allocator hands out monotonically increasing ids. Not safe for
// concurrent use: the counter is unsynchronized, and the file store
// serializes every call under its write lock.
type Allocator struct {
	next uint32
}

// Next returns the next unused id.
func (a *Allocator) Next() ID {
	id := ID(a.next)
	a.next++
	return id
}

// Restore advances the allocator so that ids already present in a
// loaded snapshot are never reissued.
func (a *Allocator) Restore(highestSeen ID) {
	if uint32(highestSeen)+1 > a.next {
		a.next = uint32(highestSeen) + 1
	}
}
