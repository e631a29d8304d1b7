// Package fcsx is an in-memory, trigram-accelerated code search core:
// construct an Engine over one or more configured roots, optionally
// feed it a saved snapshot, and query it with literal, regex, or
// symbol searches while a background indexer keeps it current.
//
// This file is the composition root spec §9 calls for: it owns no
// search or indexing logic of its own, only the wiring between
// internal/filestore, internal/trigram, internal/depgraph,
// internal/symbols, internal/search, internal/indexer, and
// internal/snapshot, plus the lifecycle (construct -> load|index ->
// serve -> save -> drop) and the shared *sync.RWMutex spec §5 requires
// the indexer and the search engine to contend on together. Grounded
// on the teacher's cmd/lci/main_server.go composition style (build
// every component, wire them with shared state, expose a small
// lifecycle surface) without the Unix-socket RPC server itself, which
// belongs to the CLI/daemon surface this module's spec places out of
// scope.
package fcsx

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/depgraph"
	"github.com/standardbeagle/fcsx/internal/docid"
	"github.com/standardbeagle/fcsx/internal/filestore"
	"github.com/standardbeagle/fcsx/internal/indexer"
	"github.com/standardbeagle/fcsx/internal/search"
	"github.com/standardbeagle/fcsx/internal/snapshot"
	"github.com/standardbeagle/fcsx/internal/symbols"
	"github.com/standardbeagle/fcsx/internal/trigram"
)

// Version is recorded in every snapshot this build writes, and checked
// against every snapshot this build loads (spec §6 "engine_version_string").
// Bump it whenever a change to the symbol/ranking/wire model would make
// an older snapshot's bytes mean something different than they did when
// it was written.
const Version = "fcsx-0.1.0"

// Engine is the top-level handle: one Engine per corpus. All of its
// methods are safe for concurrent use.
type Engine struct {
	cfg    config.Config
	logger *zap.Logger

	mu *sync.RWMutex // shared by internal/search and internal/indexer (spec §5)

	store       *filestore.Store
	index       *trigram.Index
	graph       *depgraph.Graph
	symbolStore *symbols.Store
	registry    *symbols.Registry

	search  *search.Engine
	indexer *indexer.Indexer
}

// New constructs an Engine over cfg. It does not index anything yet —
// call IndexPaths or LoadIndex next (spec §6 lists index_paths and
// load_index as distinct operations from construction). logger may be
// nil, in which case every component logs to a no-op logger.
func New(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var mu sync.RWMutex
	store := filestore.New(cfg.Index.MaxFileSize)
	index := trigram.New()
	graph := depgraph.New()
	symbolStore := symbols.NewStore()

	registry := symbols.NewRegistry()
	registry.Register("go", symbols.DefaultExtractor{})
	registry.Register("javascript", symbols.DefaultExtractor{})
	registry.Register("typescript", symbols.DefaultExtractor{})

	searchEngine := search.New(&mu, store, index, graph, symbolStore, cfg.Search)

	ix, err := indexer.New(cfg.Index, &mu, store, index, graph, symbolStore, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("fcsx.New: %w", err)
	}

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		mu:          &mu,
		store:       store,
		index:       index,
		graph:       graph,
		symbolStore: symbolStore,
		registry:    registry,
		search:      searchEngine,
		indexer:     ix,
	}, nil
}

// IndexPaths implements index_paths (spec §6): it begins indexing
// roots in the background and returns immediately. Progress is
// observed through Progress/SubscribeProgress. If cfg.Snapshot is
// configured to save after the build completes, IndexPaths arranges
// that too; if cfg.Index.Watch is set, fsnotify-driven incremental
// reindexing starts once the initial build finishes.
func (e *Engine) IndexPaths(ctx context.Context, roots []string) error {
	e.indexer.SetRoots(roots)

	go func() {
		if err := e.indexer.Run(ctx); err != nil {
			e.logger.Error("indexing run failed", zap.Error(err))
			return
		}
		if e.cfg.Snapshot.Path != "" && e.cfg.Snapshot.SaveAfterBuild {
			if err := e.SaveIndex(e.cfg.Snapshot.Path); err != nil {
				e.logger.Error("snapshot save after build failed", zap.Error(err))
			}
		}
		if e.cfg.Index.Watch {
			if err := e.indexer.StartWatch(ctx); err != nil {
				e.logger.Error("failed to start watch mode", zap.Error(err))
			}
		}
	}()
	return nil
}

// Search implements search (spec §6 / §4.H), dispatching to the
// literal, regex, or symbol-only path based on opts.
func (e *Engine) Search(ctx context.Context, query string, opts search.Options) (search.Response, error) {
	switch {
	case opts.SymbolsOnly:
		return e.search.SearchSymbols(ctx, query, opts)
	case opts.IsRegex:
		return e.search.SearchRegex(ctx, query, opts)
	default:
		return e.search.SearchText(ctx, query, opts)
	}
}

// Dependents implements dependents(path) -> list<path> (spec §6).
func (e *Engine) Dependents(path string) ([]string, bool) {
	id, ok := e.store.Lookup(path)
	if !ok {
		return nil, false
	}
	return e.resolvePaths(e.graph.DependentsOf(id)), true
}

// Dependencies implements dependencies(path) -> list<path> (spec §6).
func (e *Engine) Dependencies(path string) ([]string, bool) {
	id, ok := e.store.Lookup(path)
	if !ok {
		return nil, false
	}
	return e.resolvePaths(e.graph.ImportsOf(id)), true
}

func (e *Engine) resolvePaths(ids []docid.ID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := e.store.GetPath(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// Stats implements stats() (spec §6).
type Stats struct {
	NumFiles          int
	TotalSize         int64
	NumTrigrams       int
	DependencyEdges   int
	TotalContentBytes int64
}

// Stats reports aggregate corpus statistics (spec §6 "stats() ->
// {num_files, total_size, num_trigrams, dependency_edges,
// total_content_bytes}"). total_content_bytes reports the same sum of
// on-disk sizes as total_size; the length of transcoded in-memory
// content (spec §4.F), which can differ, is not tracked separately.
func (e *Engine) Stats() Stats {
	numFiles, totalSize := e.store.Stats()
	return Stats{
		NumFiles:          numFiles,
		TotalSize:         totalSize,
		NumTrigrams:       e.index.TrigramCount(),
		DependencyEdges:   e.graph.EdgeCount(),
		TotalContentBytes: totalSize,
	}
}

// Progress implements progress() (spec §6).
func (e *Engine) Progress() indexer.ProgressRecord {
	return e.indexer.Progress().Snapshot()
}

// SubscribeProgress implements subscribe_progress(callback) (spec §6),
// expanded per the fan-out ProgressBus: any number of subscribers may
// observe the same stream. The returned func unsubscribes.
func (e *Engine) SubscribeProgress(fn func(indexer.ProgressRecord)) func() {
	return e.indexer.Progress().Subscribe(fn)
}

// DocumentInfo bundles everything known about a single document,
// resolving the doc_id a path-based operation like Dependents needs
// without requiring every caller to re-derive it (SPEC_FULL.md's
// supplemented accessor, grounded on the teacher's FileContentStore
// Get* accessor family).
type DocumentInfo struct {
	DocID    docid.ID
	Path     string
	MTime    int64
	Size     int64
	Metadata filestore.Metadata
	Symbols  []symbols.Symbol
}

// DocumentInfo looks up everything recorded about docID.
func (e *Engine) DocumentInfo(docID docid.ID) (DocumentInfo, bool) {
	path, ok := e.store.GetPath(docID)
	if !ok {
		return DocumentInfo{}, false
	}
	mtime, size, _ := e.store.GetStat(docID)
	meta, _ := e.store.GetMetadata(docID)
	return DocumentInfo{
		DocID:    docID,
		Path:     path,
		MTime:    mtime,
		Size:     size,
		Metadata: meta,
		Symbols:  e.symbolStore.Get(docID),
	}, true
}

// SaveIndex implements save_index(path) (spec §6 / §4.J): a consistent
// snapshot of the file store, trigram index, dependency graph, and
// symbol store is written atomically to path. It takes the shared lock
// for reading only, the same way a query does, so a save can run
// alongside concurrent searches but not alongside an indexing batch.
func (e *Engine) SaveIndex(path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return snapshot.Save(path, e.cfg.Index, Version, e.store, e.index, e.graph, e.symbolStore)
}

// LoadIndex implements load_index(path) (spec §6 / §4.J): replaces the
// engine's file store, trigram index, dependency graph, and symbol
// store with what path describes, then reconciles against the live
// filesystem (spec §4.J "runs after a successful load"). A
// snapshot-incompatible error (version or fingerprint mismatch,
// truncated footer) is returned as-is so the caller can fall back to
// IndexPaths for a full rebuild, per spec §7's propagation policy for
// snapshot errors.
func (e *Engine) LoadIndex(ctx context.Context, path string) error {
	e.mu.Lock()
	err := snapshot.Load(path, e.cfg.Index, Version, e.store, e.index, e.graph, e.symbolStore)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return e.indexer.Reconcile(ctx)
}

// Close stops watch mode if it was started. Safe to call even if watch
// was never enabled.
func (e *Engine) Close() error {
	e.indexer.StopWatch()
	return nil
}
