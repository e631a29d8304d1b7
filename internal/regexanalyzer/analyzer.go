// Package regexanalyzer implements the regex analyzer (spec §4.C): it
// parses a pattern, extracts literal substrings useful for trigram
// prefiltering, and reports whether acceleration is possible.
//
// Grounded on sourcegraph-zoekt's query/regexp.go
// (regexpToQueryRecursive), which walks the same regexp/syntax tree
// this package walks; zoekt distills a query tree, this package
// distills a flat literal list plus an acceleration flag per spec
// §4.C's own rules, which differ from zoekt's (no OR-of-substrings
// tree, no symmetry tracking — spec only needs the union of the
// per-literal candidate sets). Caching of compiled patterns follows
// the teacher's regex_analyzer/cache.go (container/list LRU).
package regexanalyzer

import (
	"regexp"
	"regexp/syntax"

	"github.com/standardbeagle/fcsx/internal/errx"
)

// Result is what an analyzed pattern yields: a compiled matcher, the
// literal substrings extracted from the parse tree, and whether any
// literal is long enough to drive trigram acceleration.
type Result struct {
	Pattern       string
	Matcher       *regexp.Regexp
	Literals      []string
	IsAccelerated bool
}

// minLiteralLen is the threshold spec §4.C sets for acceleration: "is
// accelerated equal to some literal has length >= 3" — also the
// trigram index's own minimum useful query length.
const minLiteralLen = 3

// Analyze parses pattern, compiles it, and extracts literals. A
// pattern that fails to parse or compile returns errx.InvalidRegex
// (spec §4.C Error).
func Analyze(pattern string) (*Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errx.New(errx.InvalidRegex, "regexanalyzer.Analyze", err)
	}

	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		// re compiled above via regexp.Compile (which itself parses with
		// syntax.Perl), so this branch is unreachable in practice; kept
		// for defense since the two parses are not guaranteed identical
		// across Go versions.
		return nil, errx.New(errx.InvalidRegex, "regexanalyzer.Analyze", err)
	}

	runs := extractLiteralRuns(parsed)
	literals := make([]string, 0, len(runs))
	accelerated := false
	for _, r := range runs {
		if len(r) >= minLiteralLen {
			literals = append(literals, r)
			accelerated = true
		}
	}

	return &Result{
		Pattern:       pattern,
		Matcher:       re,
		Literals:      literals,
		IsAccelerated: accelerated,
	}, nil
}

// extractLiteralRuns walks the parsed regex tree per spec §4.C:
//   - a literal character appends to the currently-accumulating run;
//   - a concatenation extends the run and recurses on non-literal children;
//   - an alternation recurses on each branch and merges the results;
//   - a capture group neither flushes nor breaks the run; its body is
//     walked in place;
//   - any other node (quantifier, class, anchor) flushes the current
//     run and recurses into its children.
//
// Runs shorter than minLiteralLen are dropped by the caller, not here,
// since OpConcat needs to see the unfiltered run while it is still
// being accumulated across siblings.
func extractLiteralRuns(re *syntax.Regexp) []string {
	var runs []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, string(cur))
			cur = nil
		}
	}

	var walk func(n *syntax.Regexp)
	walk = func(n *syntax.Regexp) {
		switch n.Op {
		case syntax.OpLiteral:
			cur = append(cur, n.Rune...)
		case syntax.OpConcat:
			for _, sub := range n.Sub {
				if sub.Op == syntax.OpLiteral {
					cur = append(cur, sub.Rune...)
					continue
				}
				flush()
				walk(sub)
			}
		case syntax.OpAlternate:
			flush()
			for _, sub := range n.Sub {
				walk(sub)
				flush()
			}
		case syntax.OpCapture:
			// A capture group doesn't itself break a literal run; recurse
			// directly so "(abc)def" still yields one run "abcdef".
			walk(n.Sub[0])
		default:
			flush()
			for _, sub := range n.Sub {
				walk(sub)
				flush()
			}
		}
	}

	walk(re)
	flush()
	return runs
}
