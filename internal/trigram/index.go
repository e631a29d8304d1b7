package trigram

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/standardbeagle/fcsx/internal/docid"
)

// Index maps every trigram to a compressed bitmap of the documents
// whose lowercased content or lowercased filename stem contains it
// (spec §3 TrigramPosting, §4.G).
//
// Concurrency: component H holds the shared reader-writer lock over
// (filestore, trigram index, depgraph) described in spec §5, so Index
// itself only needs to protect its own map against the rare case of a
// caller using it directly in a test without that outer lock; the
// mutex here is not on any query hot path under normal operation.
type Index struct {
	mu       sync.RWMutex
	postings map[Trigram]*roaring.Bitmap
	all      *roaring.Bitmap

	// byDoc tracks which trigrams a document currently contributes, so
	// Remove doesn't have to scan the entire postings table (spec
	// §4.G: "an inverted helper list keyed by doc_id makes this
	// tractable").
	byDoc map[docid.ID][]Trigram
}

// New creates an empty trigram index.
func New() *Index {
	return &Index{
		postings: make(map[Trigram]*roaring.Bitmap),
		all:      roaring.New(),
		byDoc:    make(map[docid.ID][]Trigram),
	}
}

// Insert extracts the unique trigrams of lowercasedText and adds id to
// each posting (spec §4.G insert).
func (idx *Index) Insert(id docid.ID, lowercasedText []byte) {
	set := ExtractUnique(lowercasedText)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.all.Add(uint32(id))
	if len(set) == 0 {
		return
	}
	trigrams := make([]Trigram, 0, len(set))
	for t := range set {
		bm, ok := idx.postings[t]
		if !ok {
			bm = roaring.New()
			idx.postings[t] = bm
		}
		bm.Add(uint32(id))
		trigrams = append(trigrams, t)
	}
	idx.byDoc[id] = trigrams
}

// Remove deletes id from every posting in which it appears and from
// the global document bitmap (spec §4.G remove).
func (idx *Index) Remove(id docid.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.all.Remove(uint32(id))
	for _, t := range idx.byDoc[id] {
		if bm, ok := idx.postings[t]; ok {
			bm.Remove(uint32(id))
			if bm.IsEmpty() {
				delete(idx.postings, t)
			}
		}
	}
	delete(idx.byDoc, id)
}

// Search extracts the unique trigrams of a lowercased query and
// intersects their postings in order of increasing cardinality,
// short-circuiting on an empty intermediate (spec §4.G search). Queries
// shorter than 3 bytes return every live document, since the index
// cannot discriminate on them (the line scanner still confirms the
// match).
func (idx *Index) Search(lowercasedQuery []byte) *roaring.Bitmap {
	set := ExtractUnique(lowercasedQuery)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(set) == 0 {
		return idx.all.Clone()
	}

	bitmaps := make([]*roaring.Bitmap, 0, len(set))
	for t := range set {
		bm, ok := idx.postings[t]
		if !ok {
			// A missing posting means no live document contains this
			// trigram, so the overall intersection is empty.
			return roaring.New()
		}
		bitmaps = append(bitmaps, bm)
	}

	sortByCardinality(bitmaps)

	result := bitmaps[0].Clone()
	for _, bm := range bitmaps[1:] {
		result.And(bm)
		if result.IsEmpty() {
			break
		}
	}
	return result
}

// AllDocuments returns the bitmap of every live document (spec §4.G).
func (idx *Index) AllDocuments() *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.all.Clone()
}

// TrigramCount reports how many distinct trigrams currently have a
// non-empty posting, used by Engine.Stats().
func (idx *Index) TrigramCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings)
}

// Postings exposes the raw posting map read-only, for the snapshot
// writer (component J) to serialize. Callers must not mutate the
// returned bitmaps.
func (idx *Index) Postings(fn func(t Trigram, bm *roaring.Bitmap)) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for t, bm := range idx.postings {
		fn(t, bm)
	}
}

// LoadPosting installs a posting read back from a snapshot, bypassing
// Insert's trigram extraction since the bitmap is already built. Used
// only during snapshot load (component J), before any query can run.
func (idx *Index) LoadPosting(t Trigram, bm *roaring.Bitmap) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings[t] = bm
	it := bm.Iterator()
	for it.HasNext() {
		id := docid.ID(it.Next())
		idx.all.Add(uint32(id))
		idx.byDoc[id] = append(idx.byDoc[id], t)
	}
}

func sortByCardinality(bitmaps []*roaring.Bitmap) {
	// Small N (one per query trigram, rarely more than a few dozen):
	// insertion sort avoids pulling in sort.Slice's reflection-based
	// comparator for what is almost always a handful of elements.
	for i := 1; i < len(bitmaps); i++ {
		for j := i; j > 0 && bitmaps[j].GetCardinality() < bitmaps[j-1].GetCardinality(); j-- {
			bitmaps[j], bitmaps[j-1] = bitmaps[j-1], bitmaps[j]
		}
	}
}
