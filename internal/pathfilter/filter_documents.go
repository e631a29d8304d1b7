package pathfilter

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/standardbeagle/fcsx/internal/docid"
)

// FilterDocuments intersects candidates with the set of documents whose
// path passes the filter (spec §4.B filter_documents). pathOf resolves
// a doc_id to its canonical path; it must return ("", false) for an id
// that is no longer live, in which case the id is dropped silently.
func (f *Filter) FilterDocuments(candidates *roaring.Bitmap, pathOf func(docid.ID) (string, bool)) *roaring.Bitmap {
	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		id := docid.ID(it.Next())
		path, ok := pathOf(id)
		if !ok {
			continue
		}
		if f.Matches(path) {
			out.Add(uint32(id))
		}
	}
	return out
}
