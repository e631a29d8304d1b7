package search

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/depgraph"
	"github.com/standardbeagle/fcsx/internal/docid"
	"github.com/standardbeagle/fcsx/internal/filestore"
	"github.com/standardbeagle/fcsx/internal/pathfilter"
	"github.com/standardbeagle/fcsx/internal/regexanalyzer"
	"github.com/standardbeagle/fcsx/internal/symbols"
)

// trigramIndex is the slice of internal/trigram.Index the search
// engine needs; declared as an interface so scoring/candidate-assembly
// logic can be exercised against a fake in tests without building a
// real posting index.
type trigramIndex interface {
	Search(lowercasedQuery []byte) *roaring.Bitmap
	AllDocuments() *roaring.Bitmap
}

// Engine is the search engine (spec §4.H), composed from the other
// components rather than owning any index state itself. Grounded
// structurally on the teacher's regex_analyzer/engine.go
// HybridRegexEngine (a thin composition type wiring sub-components
// together) and internal/core's query-serving functions, generalized
// from those components' specific algorithms to spec §4.H's four
// operations and two-phase ranker.
type Engine struct {
	mu      *sync.RWMutex // shared with the indexer; guards (F, G, E) per spec §5
	store   *filestore.Store
	index   trigramIndex
	graph   *depgraph.Graph
	symbols *symbols.Store
	cfg     config.Search
}

// New builds a search engine over the given components. mu must be
// the same lock the background indexer takes exclusively per batch
// (spec §5): the engine takes it for shared reading for the duration
// of one query's candidate selection and scan.
func New(mu *sync.RWMutex, store *filestore.Store, index trigramIndex, graph *depgraph.Graph, symbolStore *symbols.Store, cfg config.Search) *Engine {
	return &Engine{mu: mu, store: store, index: index, graph: graph, symbols: symbolStore, cfg: cfg}
}

// SearchText implements search_text (spec §4.H, literal path).
func (e *Engine) SearchText(ctx context.Context, query string, opts Options) (Response, error) {
	return e.search(ctx, query, opts, false)
}

// SearchRegex implements search_regex (spec §4.H, regex path).
func (e *Engine) SearchRegex(ctx context.Context, pattern string, opts Options) (Response, error) {
	opts.IsRegex = true
	return e.search(ctx, pattern, opts, false)
}

// SearchSymbols implements search_symbols (spec §4.H "Symbol-only
// search").
func (e *Engine) SearchSymbols(ctx context.Context, query string, opts Options) (Response, error) {
	return e.search(ctx, query, opts, true)
}

// SearchWithFilter implements search_with_filter: identical to
// SearchText/SearchRegex but documents the path-filter options are
// mandatory-by-convention at the call site; the underlying flow is
// the same (spec §4.H step 4 always applies the filter when patterns
// are supplied).
func (e *Engine) SearchWithFilter(ctx context.Context, query string, opts Options) (Response, error) {
	return e.search(ctx, query, opts, opts.SymbolsOnly)
}

func (e *Engine) search(ctx context.Context, query string, opts Options, symbolsOnly bool) (Response, error) {
	start := time.Now()
	lowered := strings.ToLower(query)

	filter, err := pathfilter.Compile(opts.IncludePaths, opts.ExcludePaths)
	if err != nil {
		return Response{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if symbolsOnly {
		return e.searchSymbols(query, lowered, opts, filter, start)
	}

	var candidates *roaring.Bitmap
	var warning string
	var re *regexanalyzer.Result

	if opts.IsRegex {
		re, err = regexanalyzer.Analyze(query)
		if err != nil {
			return Response{}, err
		}
		if re.IsAccelerated {
			candidates = roaring.New()
			for _, lit := range re.Literals {
				candidates.Or(e.index.Search([]byte(strings.ToLower(lit))))
			}
		} else {
			candidates = e.index.AllDocuments()
			warning = "regex not accelerated by trigram index; scanned all documents"
		}
	} else {
		if len(lowered) >= 3 {
			candidates = e.index.Search([]byte(lowered))
		} else {
			candidates = e.index.AllDocuments()
		}
	}

	if filter.HasPatterns() {
		candidates = filter.FilterDocuments(candidates, e.store.GetPath)
	}

	totalCandidates := int(candidates.GetCardinality())
	mode := e.resolveRankMode(opts.RankMode, totalCandidates)

	ids := candidates.ToArray()
	if mode == RankFast {
		ids = e.fastFilterTopN(ids, lowered)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = e.cfg.DefaultMaxResults
	}

	matches, searched, cancelled := e.scanCandidates(ctx, ids, query, lowered, re, opts.CancelToken)

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	return Response{
		Results:            matches,
		RankModeUsed:       mode,
		TotalCandidates:    totalCandidates,
		CandidatesSearched: searched,
		ElapsedMS:          time.Since(start).Milliseconds(),
		Warning:            warning,
		Cancelled:          cancelled,
	}, nil
}

func (e *Engine) resolveRankMode(requested RankMode, totalCandidates int) RankMode {
	if requested == RankFast || requested == RankFull {
		return requested
	}
	threshold := e.cfg.FastRankThreshold
	if threshold <= 0 {
		threshold = 5000
	}
	if totalCandidates > threshold {
		return RankFast
	}
	return RankFull
}

// fastFilterTopN scores each candidate's FileMetadata and keeps the
// top N by file_score, ties broken by doc_id ascending (spec §4.H
// "File-level (fast) score").
func (e *Engine) fastFilterTopN(ids []uint32, lowered string) []uint32 {
	topN := e.cfg.FastRankTopN
	if topN <= 0 {
		topN = 2000
	}

	type scored struct {
		id    uint32
		score float64
	}
	scoredIDs := make([]scored, 0, len(ids))
	for _, id := range ids {
		meta, _ := e.store.GetMetadata(docid.ID(id))
		fs := fileScore(fileScoreInputs{
			symbolCount:       meta.SymbolCount,
			hasSrcLib:         meta.HasSrcLib,
			importCount:       meta.ImportCount,
			isTestOrExample:   meta.IsTestOrExample,
			stemContainsQuery: lowered != "" && strings.Contains(meta.LowercaseStem, lowered),
		})
		scoredIDs = append(scoredIDs, scored{id: id, score: fs})
	}

	sort.Slice(scoredIDs, func(i, j int) bool {
		if scoredIDs[i].score != scoredIDs[j].score {
			return scoredIDs[i].score > scoredIDs[j].score
		}
		return scoredIDs[i].id < scoredIDs[j].id
	})

	if len(scoredIDs) > topN {
		scoredIDs = scoredIDs[:topN]
	}
	out := make([]uint32, len(scoredIDs))
	for i, s := range scoredIDs {
		out[i] = s.id
	}
	return out
}

// scanCandidates scans every candidate document in parallel (spec §5:
// "the parallel line scan"), producing provisional matches. It
// returns the matches found, how many candidates were actually
// searched, and whether the scan was cut short by cancellation.
func (e *Engine) scanCandidates(ctx context.Context, ids []uint32, query, lowered string, re *regexanalyzer.Result, cancel <-chan struct{}) ([]Match, int, bool) {
	var (
		mu        sync.Mutex
		matches   []Match
		searched  int
		cancelled bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, raw := range ids {
		id := docid.ID(raw)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				mu.Lock()
				cancelled = true
				mu.Unlock()
				return nil
			case <-cancel:
				mu.Lock()
				cancelled = true
				mu.Unlock()
				return nil
			default:
			}

			found := e.scanOne(id, query, lowered, re)

			mu.Lock()
			matches = append(matches, found...)
			searched++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return matches, searched, cancelled
}

func (e *Engine) scanOne(id docid.ID, query, lowered string, re *regexanalyzer.Result) []Match {
	path, ok := e.store.GetPath(id)
	if !ok {
		return nil
	}
	content, err := e.store.GetContent(id)
	if err != nil {
		log.Printf("search: skipping doc %d (%s): %v", id, path, err)
		return nil
	}
	meta, _ := e.store.GetMetadata(id)
	dependents := e.graph.Dependents(id)

	var out []Match
	lineNo := 0
	for _, lineBytes := range splitLines(content) {
		lineNo++
		line := string(lineBytes)
		trimmed := strings.TrimSpace(line)

		var matched bool
		var offset int
		if re != nil {
			budget := time.Duration(e.cfg.RegexLineBudgetMs) * time.Millisecond
			ok, timedOut := regexanalyzer.MatchLineWithBudget(re.Matcher, lineBytes, budget)
			if timedOut {
				log.Printf("search: regex line budget exceeded on doc %d (%s) line %d", id, path, lineNo)
				continue
			}
			if ok {
				loc := re.Matcher.FindStringIndex(line)
				if loc != nil {
					matched = true
					offset = loc[0]
				}
			}
		} else {
			idx := strings.Index(strings.ToLower(line), lowered)
			if idx >= 0 {
				matched = true
				offset = idx
			}
		}
		if !matched {
			continue
		}

		score := lineScore(lineScoreInputs{
			exactCaseMatch:    strings.Contains(line, query),
			isSymbolLine:      e.symbols.LineHasDefinition(id, lineNo),
			hasSrcLib:         meta.HasSrcLib,
			trimmedLineLength: len(trimmed),
			matchAtLineStart:  offset == len(line)-len(strings.TrimLeft(line, " \t")),
			dependents:        dependents,
		})

		matchType := MatchText
		if e.symbols.LineHasDefinition(id, lineNo) {
			matchType = MatchSymbolDefinition
		}

		out = append(out, Match{
			DocID:      id,
			Path:       path,
			Line:       lineNo,
			Content:    preview(trimmed, e.cfg.PreviewBytes),
			Type:       matchType,
			Score:      score,
			Dependents: dependents,
		})
	}

	if len(out) == 0 {
		fileNameSym, nameMatches := e.symbols.FileNameSymbolMatching(id, lowered)
		if !nameMatches && re != nil {
			if all := e.symbols.Get(id); len(all) > 0 {
				for _, s := range all {
					if s.Kind == symbols.FileName && re.Matcher.MatchString(s.Name) {
						fileNameSym, nameMatches = s, true
						break
					}
				}
			}
		}
		if nameMatches {
			score := lineScore(lineScoreInputs{
				hasSrcLib:         meta.HasSrcLib,
				trimmedLineLength: len(path),
				dependents:        dependents,
			}) * filenameBonus
			out = append(out, Match{
				DocID:      id,
				Path:       path,
				Line:       0,
				Content:    path,
				Type:       MatchFilename,
				Score:      score,
				Dependents: dependents,
			})
			_ = fileNameSym
		}
	}

	return out
}

func (e *Engine) searchSymbols(query, lowered string, opts Options, filter *pathfilter.Filter, start time.Time) (Response, error) {
	var candidates *roaring.Bitmap
	if len(lowered) >= 3 {
		candidates = e.index.Search([]byte(lowered))
	} else {
		candidates = e.index.AllDocuments()
	}
	if filter.HasPatterns() {
		candidates = filter.FilterDocuments(candidates, e.store.GetPath)
	}
	totalCandidates := int(candidates.GetCardinality())

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = e.cfg.DefaultMaxResults
	}

	var matches []Match
	it := candidates.Iterator()
	searched := 0
	for it.HasNext() {
		id := docid.ID(it.Next())
		searched++
		path, ok := e.store.GetPath(id)
		if !ok {
			continue
		}
		dependents := e.graph.Dependents(id)
		meta, _ := e.store.GetMetadata(id)

		for _, sym := range e.symbols.Matching(id, lowered) {
			matchType := MatchSymbolDefinition
			content := path
			if sym.Kind != symbols.FileName {
				content = sym.Name
			}
			score := lineScore(lineScoreInputs{
				hasSrcLib:         meta.HasSrcLib,
				trimmedLineLength: len(content),
				dependents:        dependents,
			})
			matches = append(matches, Match{
				DocID:      id,
				Path:       path,
				Line:       sym.Line,
				Content:    content,
				Type:       matchType,
				Score:      score,
				Dependents: dependents,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	return Response{
		Results:            matches,
		RankModeUsed:       RankFull,
		TotalCandidates:    totalCandidates,
		CandidatesSearched: searched,
		ElapsedMS:          time.Since(start).Milliseconds(),
	}, nil
}

func splitLines(content []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

func preview(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes]
}
