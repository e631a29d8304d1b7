package filestore

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Metadata holds the pre-computed, per-document facts the ranker's
// file-level fast score reads (spec §3 FileMetadata). A document's
// Metadata is a default-valued zero value until indexing has filled
// it in; callers must not rely on its counts until then (spec §4.F
// get_metadata contract).
type Metadata struct {
	SymbolCount     int
	ImportCount     int
	HasSrcLib       bool
	IsTestOrExample bool
	LowercaseStem   string
}

var testSuffixes = []string{"_test", ".test", "_spec"}

// ComputeStaticMetadata derives the path-only fields of Metadata
// (HasSrcLib, IsTestOrExample, LowercaseStem) that don't depend on
// indexing results; SymbolCount and ImportCount are filled in
// separately once symbols and imports are resolved (spec §3).
func ComputeStaticMetadata(path string) Metadata {
	return Metadata{
		HasSrcLib:       hasSrcLibSegment(path),
		IsTestOrExample: isTestOrExample(path),
		LowercaseStem:   lowercaseStem(path),
	}
}

func hasSrcLibSegment(path string) bool {
	norm := "/" + strings.ReplaceAll(path, "\\", "/")
	return strings.Contains(norm, "/src/") || strings.Contains(norm, "/lib/")
}

func isTestOrExample(path string) bool {
	norm := "/" + strings.ReplaceAll(path, "\\", "/")
	for _, seg := range []string{"/test", "/tests/", "/spec/", "/example", "/examples/"} {
		if strings.Contains(norm, seg) {
			return true
		}
	}
	stem := lowercaseStem(path)
	for _, suf := range testSuffixes {
		if strings.HasSuffix(stem, suf) {
			return true
		}
	}
	return false
}

func lowercaseStem(path string) string {
	base := path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' || base[i] == '\\' {
			base = base[i+1:]
			break
		}
	}
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	return foldASCII(strings.ToLower(base))
}

// foldASCII decomposes s (NFD) and drops combining marks, so accented
// Latin letters fold to their unaccented ASCII form (é -> e) rather
// than being deleted outright; any remaining non-ASCII rune is
// dropped. Grounded on golang.org/x/text/unicode/norm, already a
// dependency for the file store's transcoding path.
func foldASCII(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r >= 0x80 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
