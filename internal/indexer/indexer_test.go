package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/depgraph"
	"github.com/standardbeagle/fcsx/internal/errx"
	"github.com/standardbeagle/fcsx/internal/filestore"
	"github.com/standardbeagle/fcsx/internal/search"
	"github.com/standardbeagle/fcsx/internal/symbols"
	"github.com/standardbeagle/fcsx/internal/trigram"
)

func newTestIndexer(t *testing.T, roots ...string) (*Indexer, *filestore.Store, *trigram.Index, *depgraph.Graph, *symbols.Store) {
	t.Helper()

	store := filestore.New(0)
	index := trigram.New()
	graph := depgraph.New()
	symStore := symbols.NewStore()
	registry := symbols.NewRegistry()
	registry.Register("go", symbols.DefaultExtractor{})
	registry.Register("javascript", symbols.DefaultExtractor{})

	cfg := config.Default().Index
	cfg.Roots = roots
	cfg.Extensions = []string{".go"}

	var mu sync.RWMutex
	ix, err := New(cfg, &mu, store, index, graph, symStore, registry, nil)
	require.NoError(t, err)
	return ix, store, index, graph, symStore
}

func TestRun_IndexesDiscoveredFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("not go"), 0o644))

	ix, store, index, _, symStore := newTestIndexer(t, dir)

	require.NoError(t, ix.Run(context.Background()))

	id, ok := store.Lookup(filepath.Join(dir, "a.go"))
	require.True(t, ok)

	_, ok = store.Lookup(filepath.Join(dir, "skip.txt"))
	require.False(t, ok, "extension whitelist should exclude .txt")

	content, err := store.GetContent(id)
	require.NoError(t, err)
	require.Contains(t, string(content), "func Foo")

	bm := index.Search([]byte("foo"))
	require.True(t, bm.Contains(uint32(id)))

	syms := symStore.Get(id)
	require.NotEmpty(t, syms)

	rec := ix.Progress().Snapshot()
	require.Equal(t, Completed, rec.State)
	require.EqualValues(t, 1, rec.FilesIndexed)
}

func TestRun_ResolvesRelativeGoImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util", "helper.go"), []byte("package util\nfunc Help() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\nimport \"./util/helper\"\n"), 0o644))

	ix, store, _, graph, _ := newTestIndexer(t, dir)
	require.NoError(t, ix.Run(context.Background()))

	mainID, ok := store.Lookup(filepath.Join(dir, "main.go"))
	require.True(t, ok)
	helperID, ok := store.Lookup(filepath.Join(dir, "util", "helper.go"))
	require.True(t, ok)

	deps := graph.ImportsOf(mainID)
	require.Contains(t, deps, helperID)
	require.Equal(t, 1, graph.Dependents(helperID))
}

func TestRun_SkipsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 200)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.go"), big, 0o644))

	store := filestore.New(100)
	index := trigram.New()
	graph := depgraph.New()
	symStore := symbols.NewStore()
	registry := symbols.NewRegistry()
	registry.Register("go", symbols.DefaultExtractor{})

	cfg := config.Default().Index
	cfg.Roots = []string{dir}
	cfg.Extensions = []string{".go"}
	cfg.MaxFileSize = 100

	var mu sync.RWMutex
	ix, err := New(cfg, &mu, store, index, graph, symStore, registry, nil)
	require.NoError(t, err)

	require.NoError(t, ix.Run(context.Background()))

	id, ok := store.Lookup(filepath.Join(dir, "big.go"))
	require.True(t, ok, "oversized files stay registered so Stats()/DocumentInfo can see them")

	numFiles, _ := store.Stats()
	require.Equal(t, 1, numFiles)

	_, getErr := store.GetContent(id)
	require.Error(t, getErr)
	require.True(t, errors.Is(getErr, errx.ResourceExhausted))
}

func TestWatch_CreatedFileGetsIndexed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))

	ix, store, _, _, _ := newTestIndexer(t, dir)
	ix.cfg.WatchDebounceMs = 20
	require.NoError(t, ix.Run(context.Background()))

	require.NoError(t, ix.StartWatch(context.Background()))
	defer ix.StopWatch()

	newPath := filepath.Join(dir, "b.go")
	require.NoError(t, os.WriteFile(newPath, []byte("package a\nfunc Bar() {}\n"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := store.Lookup(newPath)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_RemovedFileClearsDocument(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(target, []byte("package a\n"), 0o644))

	ix, store, index, graph, symStore := newTestIndexer(t, dir)
	ix.cfg.WatchDebounceMs = 20
	require.NoError(t, ix.Run(context.Background()))

	id, ok := store.Lookup(target)
	require.True(t, ok)

	require.NoError(t, ix.StartWatch(context.Background()))
	defer ix.StopWatch()

	require.NoError(t, os.Remove(target))

	require.Eventually(t, func() bool {
		_, ok := store.Lookup(target)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	require.Empty(t, symStore.Get(id))
	require.Equal(t, 0, graph.Dependents(id))
	require.False(t, index.Search([]byte("package")).Contains(uint32(id)))
}

func TestProgressBus_SubscribersReceiveUpdates(t *testing.T) {
	bus := NewProgressBus(0, nil)

	var mu sync.Mutex
	var seen []State
	unsub := bus.Subscribe(func(rec ProgressRecord) {
		mu.Lock()
		seen = append(seen, rec.State)
		mu.Unlock()
	})
	defer unsub()

	bus.SetState(Discovering)
	bus.SetState(Indexing)
	bus.SetState(Completed)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []State{Discovering, Indexing, Completed}, seen)
}

func TestProgressBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewProgressBus(0, nil)
	count := 0
	unsub := bus.Subscribe(func(ProgressRecord) { count++ })
	bus.SetState(Discovering)
	unsub()
	bus.SetState(Indexing)
	require.Equal(t, 1, count)
}

func TestResolveImports_SetsImportCountUsedByFastRank(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package x\nfunc A() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package x\nfunc B() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "popular_main.go"),
		[]byte("package main\nimport \"./a\"\nimport \"./b\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lonely_main.go"),
		[]byte("package main\nfunc Lonely() {}\n"), 0o644))

	ix, store, index, graph, symStore := newTestIndexer(t, dir)
	require.NoError(t, ix.Run(context.Background()))

	popularID, ok := store.Lookup(filepath.Join(dir, "popular_main.go"))
	require.True(t, ok)
	lonelyID, ok := store.Lookup(filepath.Join(dir, "lonely_main.go"))
	require.True(t, ok)

	popularMeta, _ := store.GetMetadata(popularID)
	lonelyMeta, _ := store.GetMetadata(lonelyID)
	require.Equal(t, 2, popularMeta.ImportCount)
	require.Equal(t, 0, lonelyMeta.ImportCount)

	cfg := config.Default().Search
	cfg.FastRankTopN = 1
	var mu sync.RWMutex
	eng := search.New(&mu, store, index, graph, symStore, cfg)

	resp, err := eng.SearchText(context.Background(), "main", search.Options{
		RankMode: search.RankFast,
	})
	require.NoError(t, err)

	var sawPopular, sawLonely bool
	for _, m := range resp.Results {
		if m.DocID == popularID {
			sawPopular = true
		}
		if m.DocID == lonelyID {
			sawLonely = true
		}
	}
	require.True(t, sawPopular, "nonzero import_bonus should keep the multi-importer file in the fast-rank top-1")
	require.False(t, sawLonely, "a file with no outbound imports should lose the fast-rank cut to the multi-importer file")
}

func TestIsLikelyBinary(t *testing.T) {
	require.True(t, isLikelyBinary([]byte{0x00, 0x01, 0x02}))
	require.False(t, isLikelyBinary([]byte("package main\n")))
}

func TestExtractImportPaths_Go(t *testing.T) {
	content := []byte("package main\n\nimport (\n\t\"fmt\"\n\t\"./local\"\n)\n")
	got := extractImportPaths(content, "go")
	require.Contains(t, got, "fmt")
	require.Contains(t, got, "./local")
}

func TestExtractImportPaths_JS(t *testing.T) {
	content := []byte("import foo from './foo'\nconst bar = require('./bar')\n")
	got := extractImportPaths(content, "javascript")
	require.Contains(t, got, "./foo")
	require.Contains(t, got, "./bar")
}

func TestExtractImportPaths_UnknownLanguage(t *testing.T) {
	require.Nil(t, extractImportPaths([]byte("whatever"), "rust"))
}

func TestState_String(t *testing.T) {
	require.Equal(t, "indexing", Indexing.String())
	require.Equal(t, "resolving-imports", ResolvingImports.String())
	require.Equal(t, "unknown", State(99).String())
}
