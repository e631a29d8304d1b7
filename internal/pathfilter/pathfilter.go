// Package pathfilter implements the path filter (spec §4.B): a
// compiled include/exclude glob matcher that can test one path or
// reduce a candidate bitmap of document ids to those whose path
// passes.
//
// Grounded on the teacher's FileScanner.shouldExcludeFast /
// shouldIncludeFast (internal/indexing/pipeline_types.go), which
// already matches against github.com/bmatcuk/doublestar/v4 — the same
// library this package uses, since doublestar natively supports every
// construct spec §4.B names (*, **, ?, character classes, brace
// alternations). The teacher re-validates each pattern string on every
// call; this package validates once at Compile time (spec §9 "Glob
// compilation... pre-compiled... O(pattern-complexity), not
// O(patterns x candidates)") and additionally supports a leading '!'
// negation prefix per pattern, which doublestar itself leaves to the
// caller.
package pathfilter

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/fcsx/internal/errx"
)

// pattern is one compiled include or exclude entry.
type pattern struct {
	raw    string
	negate bool
	glob   string // raw with a leading '!' stripped, if any
}

// Filter is a compiled, reusable include/exclude pattern set (spec
// §4.B: "The compiled pattern set is reused across calls; the filter
// is otherwise stateless").
type Filter struct {
	includes []pattern
	excludes []pattern
}

// Compile validates every include and exclude pattern up front so a
// bad pattern fails fast with errx.InvalidPattern rather than at the
// first query (spec §4.B Error).
func Compile(includes, excludes []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.includes, err = compileList(includes); err != nil {
		return nil, err
	}
	if f.excludes, err = compileList(excludes); err != nil {
		return nil, err
	}
	return f, nil
}

func compileList(patterns []string) ([]pattern, error) {
	out := make([]pattern, 0, len(patterns))
	for _, raw := range patterns {
		glob := raw
		negate := false
		if len(glob) > 0 && glob[0] == '!' {
			negate = true
			glob = glob[1:]
		}
		if !doublestar.ValidatePattern(glob) {
			return nil, errx.New(errx.InvalidPattern, "pathfilter.Compile", errInvalid(glob)).WithPath(raw)
		}
		out = append(out, pattern{raw: raw, negate: negate, glob: glob})
	}
	return out, nil
}

type patternErr string

func (e patternErr) Error() string { return "invalid glob pattern: " + string(e) }

func errInvalid(pattern string) error { return patternErr(pattern) }

// Matches reports whether path passes the filter: (includes is empty OR
// some include matches) AND no exclude matches, with negated entries
// ('!'-prefixed) inverting their own contribution (spec §4.B Contract).
// A filtering call never fails; path is normalized to forward slashes
// since doublestar patterns are always written with '/' separators.
func (f *Filter) Matches(path string) bool {
	norm := filepath.ToSlash(path)

	included := len(f.includes) == 0
	for _, p := range f.includes {
		if matchQuiet(p.glob, norm) {
			included = !p.negate
		}
	}
	if !included {
		return false
	}

	excluded := false
	for _, p := range f.excludes {
		if matchQuiet(p.glob, norm) {
			excluded = !p.negate
		}
	}
	return !excluded
}

func matchQuiet(glob, path string) bool {
	ok, err := doublestar.Match(glob, path)
	return err == nil && ok
}

// HasPatterns reports whether any include or exclude pattern was supplied, so a
// caller can skip the bitmap intersection entirely when there's
// nothing to filter on (spec §4.H step 4: "Intersect with the
// path-filter bitmap if any patterns were supplied").
func (f *Filter) HasPatterns() bool {
	return len(f.includes) > 0 || len(f.excludes) > 0
}
