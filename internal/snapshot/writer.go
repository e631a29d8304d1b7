package snapshot

import (
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/depgraph"
	"github.com/standardbeagle/fcsx/internal/docid"
	"github.com/standardbeagle/fcsx/internal/errx"
	"github.com/standardbeagle/fcsx/internal/filestore"
	"github.com/standardbeagle/fcsx/internal/symbols"
	"github.com/standardbeagle/fcsx/internal/trigram"
)

// metaFlag bits packed into the metadata table's flags byte.
const (
	flagHasSrcLib       = 1 << 0
	flagIsTestOrExample = 1 << 1
)

// Save writes a complete snapshot of store, idx, graph, and symStore to
// path (spec §4.J save: "serializes F, G, and E... writes are atomic:
// the writer builds the new file... then renames it over the previous
// snapshot... holds an exclusive file lock while writing"). engineVersion
// is recorded in the header so a later Load from a different build can
// tell semantic incompatibility apart from a wire-format mismatch.
func Save(path string, cfg config.Index, engineVersion string, store *filestore.Store, idx *trigram.Index, graph *depgraph.Graph, symStore *symbols.Store) error {
	body := buildBody(cfg, engineVersion, store, idx, graph, symStore)

	header := append([]byte(magic), body...)
	footer := &encoder{}
	footer.u64(uint64(len(header)))
	footer.u32(checksum(header))
	footer.raw([]byte(magic))

	full := append(header, footer.buf.Bytes()...)

	return writeAtomic(path, full)
}

func buildBody(cfg config.Index, engineVersion string, store *filestore.Store, idx *trigram.Index, graph *depgraph.Graph, symStore *symbols.Store) []byte {
	e := &encoder{}
	e.u32(fmtVersion)
	e.str(engineVersion)
	fp := Fingerprint(cfg)
	e.raw(fp[:])

	writeDocumentTable(e, store)
	writeMetadataTable(e, store)
	writeTrigramTable(e, idx)
	writeSymbolTable(e, symStore)
	writeEdgeTable(e, graph)

	return e.buf.Bytes()
}

func writeDocumentTable(e *encoder, store *filestore.Store) {
	paths := store.AllPaths()
	e.u32(uint32(len(paths)))
	for id, path := range paths {
		mtime, size, _ := store.GetStat(id)
		e.u32(uint32(id))
		e.str(path)
		e.i64(mtime)
		e.i64(size)
	}
}

func writeMetadataTable(e *encoder, store *filestore.Store) {
	paths := store.AllPaths()
	e.u32(uint32(len(paths)))
	for id := range paths {
		meta, _ := store.GetMetadata(id)
		var flags uint8
		if meta.HasSrcLib {
			flags |= flagHasSrcLib
		}
		if meta.IsTestOrExample {
			flags |= flagIsTestOrExample
		}
		e.u32(uint32(id))
		e.u32(uint32(meta.SymbolCount))
		e.u32(uint32(meta.ImportCount))
		e.u8(flags)
		e.str(meta.LowercaseStem)
	}
}

// writeTrigramTable serializes every posting as {trigram (3 bytes),
// bitmap (length-prefixed, roaring's own compressed wire format)}. The
// count prefix is buffered separately since Postings' callback doesn't
// know the total up front.
func writeTrigramTable(e *encoder, idx *trigram.Index) {
	type posting struct {
		t  trigram.Trigram
		bm *roaring.Bitmap
	}
	var all []posting
	idx.Postings(func(t trigram.Trigram, bm *roaring.Bitmap) {
		all = append(all, posting{t: t, bm: bm})
	})

	e.u32(uint32(len(all)))
	for _, p := range all {
		e.buf.WriteByte(byte(p.t >> 16))
		e.buf.WriteByte(byte(p.t >> 8))
		e.buf.WriteByte(byte(p.t))
		raw, _ := p.bm.ToBytes()
		e.bytesField(raw)
	}
}

func writeSymbolTable(e *encoder, symStore *symbols.Store) {
	all := symStore.All()
	var total uint32
	for _, syms := range all {
		total += uint32(len(syms))
	}
	e.u32(total)
	for id, syms := range all {
		for _, sym := range syms {
			e.u32(uint32(id))
			e.u8(uint8(sym.Kind))
			e.str(sym.Name)
			e.u32(uint32(sym.Line))
		}
	}
}

func writeEdgeTable(e *encoder, graph *depgraph.Graph) {
	var edges [][2]docid.ID
	graph.Edges(func(src, dst docid.ID) {
		edges = append(edges, [2]docid.ID{src, dst})
	})
	e.u32(uint32(len(edges)))
	for _, edge := range edges {
		e.u32(uint32(edge[0]))
		e.u32(uint32(edge[1]))
	}
}

// writeAtomic writes data to a temp file beside path, holding an
// exclusive advisory lock for the duration, then renames it over path
// (spec §4.J "atomic... temp file then rename"). Grounded on
// golang.org/x/sys/unix.Flock for the lock primitive since this is the
// only component that needs cross-process write exclusion — no example
// repo in the pack does file locking, so this is the ecosystem's
// standard advisory-lock mechanism rather than a hand-rolled one.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errx.New(errx.IOError, "snapshot.Save", err).WithPath(path)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := unix.Flock(int(tmp.Fd()), unix.LOCK_EX); err != nil {
		tmp.Close()
		return errx.New(errx.IOError, "snapshot.Save", err).WithPath(path)
	}

	// Write, sync, unlock, and close are each independently fallible;
	// none of them should short-circuit the others since the temp file
	// still needs to be unlocked and closed even if the write itself
	// failed, so every step's error is collected rather than returned
	// early and combined with go.uber.org/multierr.
	var writeErr, syncErr error
	if _, writeErr = tmp.Write(data); writeErr == nil {
		syncErr = tmp.Sync()
	}
	unlockErr := unix.Flock(int(tmp.Fd()), unix.LOCK_UN)
	closeErr := tmp.Close()

	if err := multierr.Combine(writeErr, syncErr, unlockErr, closeErr); err != nil {
		return errx.New(errx.IOError, "snapshot.Save", err).WithPath(path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errx.New(errx.IOError, "snapshot.Save", err).WithPath(path)
	}
	return nil
}
