package snapshot

import (
	"os"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sys/unix"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/depgraph"
	"github.com/standardbeagle/fcsx/internal/docid"
	"github.com/standardbeagle/fcsx/internal/errx"
	"github.com/standardbeagle/fcsx/internal/filestore"
	"github.com/standardbeagle/fcsx/internal/symbols"
	"github.com/standardbeagle/fcsx/internal/trigram"
)

// Load reads a snapshot written by Save back into store, idx, graph,
// and symStore (spec §4.J load: "validates fmt_version,
// engine_version_string, and config_fingerprint before trusting the
// rest of the file; on any mismatch it returns... so the caller can
// fall back to a full rebuild"). The caller must restore every
// component before any query runs against them, and should invoke
// Indexer.Reconcile afterward to catch anything that changed on disk
// since the snapshot was taken.
func Load(path string, cfg config.Index, engineVersion string, store *filestore.Store, idx *trigram.Index, graph *depgraph.Graph, symStore *symbols.Store) error {
	data, err := readLocked(path)
	if err != nil {
		return err
	}

	if len(data) < len(magic)+16 {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}

	footerStart := len(data) - 16
	footer := newDecoder(data[footerStart:])
	totalLength, _ := footer.u64()
	wantChecksum, _ := footer.u32()
	footerMagic, _ := footer.rawN(4)
	if string(footerMagic) != magic {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}
	if totalLength != uint64(footerStart) {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}
	header := data[:footerStart]
	if checksum(header) != wantChecksum {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}

	d := newDecoder(header)
	headMagic, err := d.rawN(len(magic))
	if err != nil || string(headMagic) != magic {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}
	version, err := d.u32()
	if err != nil || version != fmtVersion {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}
	storedEngineVersion, err := d.str()
	if err != nil || storedEngineVersion != engineVersion {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}
	fpBytes, err := d.rawN(fingerprintSize)
	if err != nil {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
	}
	want := Fingerprint(cfg)
	for i := range want {
		if fpBytes[i] != want[i] {
			return errx.New(errx.SnapshotIncompatible, "snapshot.Load", errTruncated{}).WithPath(path)
		}
	}

	if err := loadDocumentTable(d, store); err != nil {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", err).WithPath(path)
	}
	metaByID, err := readMetadataTable(d)
	if err != nil {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", err).WithPath(path)
	}
	applyMetadata(store, metaByID)

	if err := loadTrigramTable(d, idx); err != nil {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", err).WithPath(path)
	}
	if err := loadSymbolTable(d, symStore); err != nil {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", err).WithPath(path)
	}
	if err := loadEdgeTable(d, graph); err != nil {
		return errx.New(errx.SnapshotIncompatible, "snapshot.Load", err).WithPath(path)
	}

	return nil
}

type restoredMeta struct {
	symbolCount, importCount int
	flags                    uint8
	lowercaseStem            string
}

func loadDocumentTable(d *decoder, store *filestore.Store) error {
	count, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		id, err := d.u32()
		if err != nil {
			return err
		}
		path, err := d.str()
		if err != nil {
			return err
		}
		mtime, err := d.i64()
		if err != nil {
			return err
		}
		size, err := d.i64()
		if err != nil {
			return err
		}
		store.RestoreDocument(docid.ID(id), path, mtime, size, filestore.Metadata{})
	}
	return nil
}

func readMetadataTable(d *decoder) (map[docid.ID]restoredMeta, error) {
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make(map[docid.ID]restoredMeta, count)
	for i := uint32(0); i < count; i++ {
		id, err := d.u32()
		if err != nil {
			return nil, err
		}
		symCount, err := d.u32()
		if err != nil {
			return nil, err
		}
		impCount, err := d.u32()
		if err != nil {
			return nil, err
		}
		flags, err := d.u8()
		if err != nil {
			return nil, err
		}
		stem, err := d.str()
		if err != nil {
			return nil, err
		}
		out[docid.ID(id)] = restoredMeta{
			symbolCount:   int(symCount),
			importCount:   int(impCount),
			flags:         flags,
			lowercaseStem: stem,
		}
	}
	return out, nil
}

// applyMetadata installs each restored document's Metadata by calling
// RestoreDocument again with the same path/mtime/size: the metadata
// table's row is used when present, and static metadata is derived
// from the path only for a document the table has no row for.
func applyMetadata(store *filestore.Store, metaByID map[docid.ID]restoredMeta) {
	paths := store.AllPaths()
	for id, path := range paths {
		rm, ok := metaByID[id]
		mtime, size, _ := store.GetStat(id)
		meta := filestore.ComputeStaticMetadata(path)
		if ok {
			meta = filestore.Metadata{
				SymbolCount:     rm.symbolCount,
				ImportCount:     rm.importCount,
				HasSrcLib:       rm.flags&flagHasSrcLib != 0,
				IsTestOrExample: rm.flags&flagIsTestOrExample != 0,
				LowercaseStem:   rm.lowercaseStem,
			}
		}
		store.RestoreDocument(id, path, mtime, size, meta)
	}
}

func loadTrigramTable(d *decoder, idx *trigram.Index) error {
	count, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tb, err := d.rawN(3)
		if err != nil {
			return err
		}
		t := trigram.Trigram(tb[0])<<16 | trigram.Trigram(tb[1])<<8 | trigram.Trigram(tb[2])
		raw, err := d.bytesField()
		if err != nil {
			return err
		}
		bm := roaring.New()
		if _, err := bm.FromBuffer(raw); err != nil {
			return err
		}
		idx.LoadPosting(t, bm)
	}
	return nil
}

func loadSymbolTable(d *decoder, symStore *symbols.Store) error {
	count, err := d.u32()
	if err != nil {
		return err
	}
	byDoc := make(map[docid.ID][]symbols.Symbol)
	for i := uint32(0); i < count; i++ {
		id, err := d.u32()
		if err != nil {
			return err
		}
		kind, err := d.u8()
		if err != nil {
			return err
		}
		name, err := d.str()
		if err != nil {
			return err
		}
		line, err := d.u32()
		if err != nil {
			return err
		}
		docID := docid.ID(id)
		byDoc[docID] = append(byDoc[docID], symbols.Symbol{Kind: symbols.Kind(kind), Name: name, Line: int(line)})
	}
	for id, syms := range byDoc {
		symStore.Set(id, syms)
	}
	return nil
}

func loadEdgeTable(d *decoder, graph *depgraph.Graph) error {
	count, err := d.u32()
	if err != nil {
		return err
	}
	byDoc := make(map[docid.ID][]docid.ID)
	for i := uint32(0); i < count; i++ {
		src, err := d.u32()
		if err != nil {
			return err
		}
		dst, err := d.u32()
		if err != nil {
			return err
		}
		srcID := docid.ID(src)
		byDoc[srcID] = append(byDoc[srcID], docid.ID(dst))
	}
	for src, targets := range byDoc {
		graph.SetImports(src, targets)
	}
	return nil
}

// readLocked reads the whole file under a shared advisory lock (spec
// §4.J load's counterpart to Save's exclusive lock).
func readLocked(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.New(errx.IOError, "snapshot.Load", err).WithPath(path)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return nil, errx.New(errx.IOError, "snapshot.Load", err).WithPath(path)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errx.New(errx.IOError, "snapshot.Load", err).WithPath(path)
	}
	return data, nil
}
