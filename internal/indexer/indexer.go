package indexer

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/depgraph"
	"github.com/standardbeagle/fcsx/internal/filestore"
	"github.com/standardbeagle/fcsx/internal/pathfilter"
	"github.com/standardbeagle/fcsx/internal/symbols"
	"github.com/standardbeagle/fcsx/internal/trigram"
)

// Indexer drives the background-indexer state machine (spec §4.I),
// sharing its writer lock with internal/search's reader (spec §5).
//
// Grounded on the teacher's FileScanner/FileWatcher/ProgressTracker
// trio (pipeline.go, watcher.go, pipeline_progress.go), adapted from a
// tree-sitter/AST/semantic pipeline down to this engine's trigram +
// symbol + dependency-edge model.
type Indexer struct {
	cfg    config.Index
	mu     *sync.RWMutex
	logger *zap.Logger

	store       *filestore.Store
	index       *trigram.Index
	graph       *depgraph.Graph
	symbolStore *symbols.Store
	registry    *symbols.Registry
	filter      *pathfilter.Filter

	bus     *ProgressBus
	imports *importTable

	watchMu sync.Mutex
	watcher *fsWatcher
}

// New builds an Indexer over already-constructed component stores. mu is
// the same *sync.RWMutex the search engine reads under (spec §5's single
// lock guarding the F/G/E triple).
func New(cfg config.Index, mu *sync.RWMutex, store *filestore.Store, index *trigram.Index, graph *depgraph.Graph, symbolStore *symbols.Store, registry *symbols.Registry, logger *zap.Logger) (*Indexer, error) {
	filter, err := pathfilter.Compile(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.QueueMultiplier <= 0 {
		cfg.QueueMultiplier = 4
	}

	stats := func() (int, int64, int, int) {
		numFiles, totalSize := store.Stats()
		return numFiles, totalSize, index.TrigramCount(), graph.EdgeCount()
	}

	return &Indexer{
		cfg:         cfg,
		mu:          mu,
		logger:      logger,
		store:       store,
		index:       index,
		graph:       graph,
		symbolStore: symbolStore,
		registry:    registry,
		filter:      filter,
		bus:         NewProgressBus(cfg.BatchSize, stats),
		imports:     newImportTable(),
	}, nil
}

// SetRoots overrides the roots the next Run or Reconcile walks, for
// index_paths being called with a different root set than the indexer
// was originally constructed with (spec §6 "index_paths(roots, ...)").
// Callers must not invoke this concurrently with a running Run/Reconcile.
func (ix *Indexer) SetRoots(roots []string) { ix.cfg.Roots = roots }

// Progress returns the bus subscribers attach to (spec §6
// "subscribe_progress(callback)", expanded per SPEC_FULL.md into a
// fan-out ProgressBus).
func (ix *Indexer) Progress() *ProgressBus { return ix.bus }

// Run executes one full build: discovering -> indexing -> resolving
// imports -> completed (spec §4.I boot transitions when no snapshot is
// configured). It returns once every root has been walked and every
// discovered file has been committed; callers that also want watch mode
// call StartWatch afterward.
func (ix *Indexer) Run(ctx context.Context) error {
	ix.bus.SetState(Discovering)

	queue := make(chan pathEntry, ix.cfg.QueueMultiplier*ix.cfg.Workers)
	var discoverErr error
	var wgDiscover sync.WaitGroup
	wgDiscover.Add(1)
	go func() {
		defer wgDiscover.Done()
		defer close(queue)
		discoverErr = discover(ctx, ix.cfg.Roots, ix.cfg, ix.filter, queue, ix.bus)
	}()

	ix.bus.SetState(Indexing)
	if err := ix.drainAndIndex(ctx, queue); err != nil {
		wgDiscover.Wait()
		return err
	}
	wgDiscover.Wait()
	if discoverErr != nil && discoverErr != context.Canceled {
		ix.logger.Warn("discovery ended with error", zap.Error(discoverErr))
	}

	ix.bus.SetState(ResolvingImports)
	ix.resolveImports()

	ix.bus.SetState(Completed)
	ix.logger.Info("indexing run completed",
		zap.Int64("files_indexed", ix.bus.Snapshot().FilesIndexed),
		zap.Int64("files_failed", ix.bus.Snapshot().FilesFailed))
	return nil
}

// drainAndIndex fans a single discovery queue out across cfg.Workers
// goroutines, each batching up to cfg.BatchSize entries per
// processBatch call (spec §4.I "Indexing workers drain the queue in
// batches").
func (ix *Indexer) drainAndIndex(ctx context.Context, queue <-chan pathEntry) error {
	var wg sync.WaitGroup
	for w := 0; w < ix.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]pathEntry, 0, ix.cfg.BatchSize)
			for entry := range queue {
				batch = append(batch, entry)
				if len(batch) >= ix.cfg.BatchSize {
					ix.processBatch(batch)
					batch = batch[:0]
				}
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
			if len(batch) > 0 {
				ix.processBatch(batch)
			}
		}()
	}
	wg.Wait()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
