package indexer

import (
	"bytes"

	"github.com/standardbeagle/fcsx/internal/symbols"
)

// sniffWindow is how much of a file's head isLikelyBinary inspects
// (spec §4.I "content-safety checks (binary sniffing...)"). Grounded on
// the purpose of the teacher's BinaryDetector (binary_detector.go),
// reimplemented as a content sniff rather than an extension table since
// this core has no fixed language list to key an extension map off of.
const sniffWindow = 8000

// isLikelyBinary reports whether content looks like non-text data: a NUL
// byte within the first sniffWindow bytes is the conventional signal git
// and most text tools use.
func isLikelyBinary(content []byte) bool {
	n := len(content)
	if n > sniffWindow {
		n = sniffWindow
	}
	return bytes.IndexByte(content[:n], 0) != -1
}

// processBatch indexes one batch of discovered files under a single
// acquisition of the shared writer lock (spec §5: "Writers ... acquire
// the exclusive lock per batch — not for the whole indexing run"). Each
// file's InsertOrUpdate, trigram insert, and symbol-store update commit
// together so no reader can observe one without the others (spec §5
// "no torn reads").
func (ix *Indexer) processBatch(batch []pathEntry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, entry := range batch {
		ix.indexOneLocked(entry)
	}
	ix.bus.IncrementBatchesProcessed()
}

func (ix *Indexer) indexOneLocked(entry pathEntry) {
	id, _ := ix.store.InsertOrUpdate(entry.path, entry.mtime, entry.size)

	content, err := ix.store.GetContent(id)
	if err != nil {
		ix.bus.RecordError(entry.path, err)
		return
	}
	if isLikelyBinary(content) {
		ix.symbolStore.Remove(id)
		ix.index.Remove(id)
		ix.bus.IncrementIndexed(entry.path)
		return
	}

	lowered := bytes.ToLower(content)

	// The candidate set a query's trigram search must hit includes
	// documents matched only by filename, not content (spec §8
	// "Filename round-trip" invariant), so the indexed text is the
	// lowercased stem, a separator that can't occur in real trigrams,
	// and the lowercased content — exactly the invariant's own
	// "lowercase(stem(d)) + \n\n\n + lowercase(content(d))" phrasing.
	meta, _ := ix.store.GetMetadata(id)
	indexed := make([]byte, 0, len(meta.LowercaseStem)+3+len(lowered))
	indexed = append(indexed, meta.LowercaseStem...)
	indexed = append(indexed, '\n', '\n', '\n')
	indexed = append(indexed, lowered...)
	ix.index.Insert(id, indexed)

	lang := symbols.DetectLanguage(entry.path)
	extracted, _ := ix.registry.Extract(content, lang)
	syms := symbols.Dedup(append(extracted, symbols.FileNameSymbol(entry.path)))
	ix.symbolStore.Set(id, syms)
	ix.store.SetSymbolCount(id, len(syms))

	ix.imports.set(id, extractImportPaths(content, lang))

	ix.bus.IncrementIndexed(entry.path)
}

// removeOneLocked undoes indexOneLocked's effects for a document that no
// longer exists (spec §4.I "remove events remove the document from F, G,
// and E").
func (ix *Indexer) removeOneLocked(path string) {
	id, ok := ix.store.Lookup(path)
	if !ok {
		return
	}
	ix.store.Remove(id)
	ix.index.Remove(id)
	ix.symbolStore.Remove(id)
	ix.graph.RemoveDocument(id)
	ix.imports.remove(id)
}
