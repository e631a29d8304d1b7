package indexer

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/standardbeagle/fcsx/internal/docid"
)

// importTable holds each document's unresolved outbound import strings,
// extracted once during indexing and consumed by resolveImports, which
// runs synchronously after a full run, a reconciliation pass, and each
// watch flush rather than on a timer. This is resolver-internal bookkeeping,
// not part of the F/G/E triple itself, so it lives behind its own mutex
// rather than the engine's shared reader-writer lock.
type importTable struct {
	mu    sync.Mutex
	byDoc map[docid.ID][]string
}

func newImportTable() *importTable {
	return &importTable{byDoc: make(map[docid.ID][]string)}
}

func (t *importTable) set(id docid.ID, imports []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(imports) == 0 {
		delete(t.byDoc, id)
		return
	}
	t.byDoc[id] = imports
}

func (t *importTable) remove(id docid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byDoc, id)
}

func (t *importTable) snapshot() map[docid.ID][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[docid.ID][]string, len(t.byDoc))
	for id, imps := range t.byDoc {
		out[id] = imps
	}
	return out
}

var (
	goImportSingle = regexp.MustCompile(`import\s+"([^"]+)"`)
	goImportQuoted = regexp.MustCompile(`(?m)^\s*(?:\w+\s+)?"([^"]+)"\s*$`)
	jsImportFrom   = regexp.MustCompile(`import\s+(?:[\w*\s{},]+from\s+)?['"]([^'"]+)['"]`)
	jsRequire      = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

// extractImportPaths extracts the raw, unresolved import strings a file
// references. Go and JS/TS syntax is recognized directly; anything else
// returns no imports, matching the pluggable-per-language posture of
// internal/symbols (spec §4.D: cross-language backends are external
// collaborators, so only the two languages DefaultExtractor understands
// get import edges out of the box).
func extractImportPaths(content []byte, languageTag string) []string {
	switch languageTag {
	case "go":
		return extractGoImports(content)
	case "javascript", "typescript":
		return extractJSImports(content)
	default:
		return nil
	}
}

func extractGoImports(content []byte) []string {
	var out []string
	if m := goImportSingle.FindAllSubmatch(content, -1); m != nil {
		for _, sub := range m {
			out = append(out, string(sub[1]))
		}
	}
	if start := strings.Index(string(content), "import ("); start >= 0 {
		end := strings.Index(string(content[start:]), ")")
		if end >= 0 {
			block := content[start : start+end]
			for _, sub := range goImportQuoted.FindAllSubmatch(block, -1) {
				out = append(out, string(sub[1]))
			}
		}
	}
	return out
}

func extractJSImports(content []byte) []string {
	var out []string
	for _, sub := range jsImportFrom.FindAllSubmatch(content, -1) {
		out = append(out, string(sub[1]))
	}
	for _, sub := range jsRequire.FindAllSubmatch(content, -1) {
		out = append(out, string(sub[1]))
	}
	return out
}

// resolveImports matches every pending document's raw import strings
// against known documents in F and commits the resulting edges into E
// (spec §4.I, §4.E). Relative imports ("./x", "../x") resolve exactly
// against the filesystem; everything else (bare module/package paths)
// falls back to a best-effort match on file basename, since resolving a
// package import to a specific file requires build-system knowledge this
// core deliberately doesn't carry (spec §4.D: language backends are
// external collaborators).
func (ix *Indexer) resolveImports() {
	pending := ix.imports.snapshot()
	if len(pending) == 0 {
		return
	}

	allPaths := ix.store.AllPaths()
	basenameIndex := make(map[string][]docid.ID, len(allPaths))
	for id, path := range allPaths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		basenameIndex[strings.ToLower(stem)] = append(basenameIndex[strings.ToLower(stem)], id)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for src, rawImports := range pending {
		srcPath, ok := allPaths[src]
		if !ok {
			continue
		}
		targets := make([]docid.ID, 0, len(rawImports))
		seen := make(map[docid.ID]bool)
		for _, raw := range rawImports {
			for _, target := range ix.resolveOneImport(srcPath, raw, basenameIndex) {
				if target == src || seen[target] {
					continue
				}
				seen[target] = true
				targets = append(targets, target)
			}
		}
		ix.graph.SetImports(src, targets)
		ix.store.SetImportCount(src, len(targets))
	}
}

var candidateExtensions = []string{".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rs"}

func (ix *Indexer) resolveOneImport(srcPath, raw string, basenameIndex map[string][]docid.ID) []docid.ID {
	if strings.HasPrefix(raw, ".") {
		joined := filepath.Join(filepath.Dir(srcPath), raw)
		if id, ok := ix.store.Lookup(joined); ok {
			return []docid.ID{id}
		}
		for _, ext := range candidateExtensions {
			if id, ok := ix.store.Lookup(joined + ext); ok {
				return []docid.ID{id}
			}
		}
		return nil
	}

	stem := strings.ToLower(filepath.Base(raw))
	return basenameIndex[stem]
}
