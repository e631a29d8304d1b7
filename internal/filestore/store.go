// Package filestore implements the file store (spec §4.F): doc_id
// assignment and path dedup, lazy zero-copy memory-mapped content for
// UTF-8 text, a transcoded-content cache for legacy encodings, and
// per-document FileMetadata.
//
// Grounded on two teacher-adjacent sources: the arena-index and
// content-cache shape of internal/core/file_content_store.go
// (path-to-id dedup, xxhash fast-hash, RWMutex-guarded maps) and
// sourcegraph-zoekt's indexfile.go mmapedIndexFile for the actual
// memory-mapping mechanics via github.com/edsrzf/mmap-go — the
// teacher never memory-maps (it keeps content as owned []byte in a
// sync.Map), so the mmap mechanics themselves come from zoekt, while
// the store's overall map-of-documents structure and hashing idiom
// come from the teacher.
package filestore

import (
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/standardbeagle/fcsx/internal/docid"
	"github.com/standardbeagle/fcsx/internal/errx"
)

// MaxFileSize is the default size cap past which a file is recorded
// but not memory-mapped or indexed (spec §4.F: "Files whose size
// exceeds a configurable cap (default 10 MB)... reported as
// skipped").
const MaxFileSize = 10 * 1024 * 1024

// document holds everything the store knows about one doc_id.
type document struct {
	path     string
	mtime    int64
	size     int64
	fastHash uint64

	mapped          mmap.MMap // nil until first GetContent call, or if oversized
	file            *os.File
	skipped         bool // size exceeded MaxFileSize
	metadata        Metadata
	transcodedCache []byte // set instead of mapped when content wasn't valid UTF-8
}

// Store is the file store: doc_id allocation, path dedup, lazy
// content mapping, and metadata.
type Store struct {
	mu          sync.RWMutex
	alloc       docid.Allocator
	pathToID    map[string]docid.ID
	docs        map[docid.ID]*document
	maxFileSize int64
}

// New builds an empty file store. maxFileSize <= 0 uses MaxFileSize.
func New(maxFileSize int64) *Store {
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	return &Store{
		pathToID:    make(map[string]docid.ID),
		docs:        make(map[docid.ID]*document),
		maxFileSize: maxFileSize,
	}
}

// InsertOrUpdate assigns or reuses a doc_id for path (canonicalized
// via filepath.EvalSymlinks beforehand by the caller — this layer
// dedups on whatever string it's given, per spec §4.F "Deduplication
// uses the OS-level canonical path"). Returns (doc_id, was_new).
func (s *Store) InsertOrUpdate(path string, mtime int64, size int64) (docid.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.pathToID[path]; ok {
		doc := s.docs[id]
		if doc.mtime != mtime || doc.size != size {
			s.invalidateMappingLocked(doc)
			doc.mtime = mtime
			doc.size = size
			doc.skipped = size > s.maxFileSize
		}
		return id, false
	}

	id := s.alloc.Next()
	doc := &document{
		path:     path,
		mtime:    mtime,
		size:     size,
		skipped:  size > s.maxFileSize,
		metadata: ComputeStaticMetadata(path),
	}
	s.pathToID[path] = id
	s.docs[id] = doc
	return id, true
}

// Remove drops doc's mapping and every associated entry (spec §4.F
// remove).
func (s *Store) Remove(id docid.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return
	}
	s.invalidateMappingLocked(doc)
	delete(s.pathToID, doc.path)
	delete(s.docs, id)
}

// RestoreDocument installs a document read back from a snapshot under
// its original doc_id, bypassing the allocator's normal monotonic
// assignment (component J load). The caller must restore every document
// before the store serves any query. RestoreDocument advances the
// allocator past id itself, so InsertOrUpdate never reissues it.
func (s *Store) RestoreDocument(id docid.ID, path string, mtime, size int64, meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alloc.Restore(id)
	doc := &document{
		path:     path,
		mtime:    mtime,
		size:     size,
		skipped:  size > s.maxFileSize,
		metadata: meta,
	}
	s.pathToID[path] = id
	s.docs[id] = doc
}

// Lookup resolves a canonical path to its doc_id without registering it,
// used by the import resolver (spec §4.I "matches them against F") to
// test whether a resolved import target is a known document.
func (s *Store) Lookup(path string) (docid.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pathToID[path]
	return id, ok
}

// AllPaths returns a snapshot of every known doc_id's path, used to build
// the resolver's best-effort basename index and by DocumentInfo lookups.
func (s *Store) AllPaths() map[docid.ID]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[docid.ID]string, len(s.docs))
	for id, doc := range s.docs {
		out[id] = doc.path
	}
	return out
}

// GetPath returns id's canonical path.
func (s *Store) GetPath(id docid.ID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return "", false
	}
	return doc.path, true
}

// GetStat returns id's last-known mtime and size, used by the
// reconciler to decide whether a snapshot-loaded document is still
// fresh against the live filesystem (spec §4.J reconciliation step 2).
func (s *Store) GetStat(id docid.ID) (mtime, size int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return 0, 0, false
	}
	return doc.mtime, doc.size, true
}

// Stats returns the document count and summed size of every known
// document, for Engine.Stats() (spec §6 "stats() -> {num_files,
// total_size, ...}").
func (s *Store) Stats() (numFiles int, totalSize int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		numFiles++
		totalSize += doc.size
	}
	return numFiles, totalSize
}

// GetMetadata returns id's Metadata, or a default-valued record if
// none has been computed yet (spec §4.F get_metadata).
func (s *Store) GetMetadata(id docid.ID) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Metadata{}, false
	}
	return doc.metadata, true
}

// SetSymbolCount and SetImportCount update the counting fields of
// Metadata once indexing has resolved them; path-derived fields are
// computed once at InsertOrUpdate time and never change.
func (s *Store) SetSymbolCount(id docid.ID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.metadata.SymbolCount = n
	}
}

func (s *Store) SetImportCount(id docid.ID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.metadata.ImportCount = n
	}
}

// GetContent performs at most one memory map per document (spec §4.F
// get_content: "must succeed for any document visible to queries, and
// fail with kind io-error otherwise"). Non-UTF-8 text is transcoded
// and cached rather than mapped directly, since a trigram/regex scan
// over raw legacy-encoding bytes would misinterpret multi-byte
// sequences.
func (s *Store) GetContent(id docid.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, errx.New(errx.IOError, "filestore.GetContent", errNotFound(id))
	}
	if doc.skipped {
		return nil, errx.New(errx.ResourceExhausted, "filestore.GetContent", errSkipped(doc.path)).WithPath(doc.path)
	}
	if doc.mapped != nil {
		return []byte(doc.mapped), nil
	}
	if doc.transcodedCache != nil {
		return doc.transcodedCache, nil
	}

	f, err := os.Open(doc.path)
	if err != nil {
		return nil, errx.New(errx.IOError, "filestore.GetContent", err).WithPath(doc.path)
	}

	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errx.New(errx.IOError, "filestore.GetContent", err).WithPath(doc.path)
	}

	content := []byte(region)
	if utf8.Valid(content) {
		doc.mapped = region
		doc.file = f
		doc.fastHash = xxhash.Sum64(content)
		return content, nil
	}

	// Not valid UTF-8: transcode, cache the transcoded bytes as the
	// document's content, and drop the raw mapping.
	transcoded, tErr := transcodeLatin1(content)
	region.Unmap()
	f.Close()
	if tErr != nil {
		return nil, errx.New(errx.EncodingError, "filestore.GetContent", tErr).WithPath(doc.path)
	}
	doc.mapped = nil
	doc.fastHash = xxhash.Sum64(transcoded)
	doc.transcodedCache = transcoded
	return transcoded, nil
}

// transcodeLatin1 decodes content as Windows-1252, the common
// fallback for non-UTF-8 source text (spec §4.F "own the
// transcoded-content cache"). Grounded on golang.org/x/text's
// encoding/transform idiom, promoted here from an indirect dependency
// of sourcegraph-zoekt's go.mod to a direct one.
func transcodeLatin1(content []byte) ([]byte, error) {
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), content)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) invalidateMappingLocked(doc *document) {
	if doc.mapped != nil {
		_ = doc.mapped.Unmap()
		doc.mapped = nil
	}
	if doc.file != nil {
		_ = doc.file.Close()
		doc.file = nil
	}
	doc.transcodedCache = nil
}

// CanonicalPath resolves path to its OS-level canonical form (symlinks
// resolved), per spec §4.F's dedup rule. Falls back to filepath.Abs if
// the path doesn't exist yet (a pending rename/create).
func CanonicalPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	return filepath.Abs(path)
}

type notFoundErr docid.ID

func (e notFoundErr) Error() string { return "unknown document id" }
func errNotFound(id docid.ID) error { return notFoundErr(id) }

type skippedErr string

func (e skippedErr) Error() string { return "file exceeds size cap: " + string(e) }
func errSkipped(path string) error { return skippedErr(path) }
