package fcsx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/search"
)

func newTestConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Index.Extensions = []string{".go"}
	cfg.Index.WatchDebounceMs = 20
	cfg.Snapshot.Path = filepath.Join(dir, "index.snap")
	return cfg
}

func waitForCompletion(t *testing.T, e *Engine) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.Progress().State.String() == "completed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_IndexPathsThenSearch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util", "helper.go"), []byte("package util\nfunc Help() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\nimport \"./util/helper\"\nfunc main() { Help() }\n"), 0o644))

	e, err := New(newTestConfig(dir), nil)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.IndexPaths(context.Background(), []string{dir}))
	waitForCompletion(t, e)

	resp, err := e.Search(context.Background(), "Help", search.Options{MaxResults: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	deps, ok := e.Dependents(filepath.Join(dir, "util", "helper.go"))
	require.True(t, ok)
	require.Contains(t, deps, filepath.Join(dir, "main.go"))

	imports, ok := e.Dependencies(filepath.Join(dir, "main.go"))
	require.True(t, ok)
	require.Contains(t, imports, filepath.Join(dir, "util", "helper.go"))

	stats := e.Stats()
	require.Equal(t, 2, stats.NumFiles)
	require.Equal(t, 1, stats.DependencyEdges)
}

func TestEngine_DocumentInfo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644))

	e, err := New(newTestConfig(dir), nil)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.IndexPaths(context.Background(), []string{dir}))
	waitForCompletion(t, e)

	id, ok := e.store.Lookup(filepath.Join(dir, "a.go"))
	require.True(t, ok)

	info, ok := e.DocumentInfo(id)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "a.go"), info.Path)
	require.NotEmpty(t, info.Symbols)

	_, ok = e.DocumentInfo(id + 1000)
	require.False(t, ok)
}

func TestEngine_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\nimport \"./a\"\nfunc Bar() { Foo() }\n"), 0o644))

	cfg := newTestConfig(dir)
	cfg.Index.Roots = []string{dir}

	e, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.IndexPaths(context.Background(), []string{dir}))
	waitForCompletion(t, e)

	before, err := e.Search(context.Background(), "Foo", search.Options{MaxResults: 10})
	require.NoError(t, err)
	require.NotEmpty(t, before.Results)
	beforeDeps, _ := e.Dependents(filepath.Join(dir, "a.go"))

	require.NoError(t, e.SaveIndex(cfg.Snapshot.Path))
	require.NoError(t, e.Close())

	reloaded, err := New(cfg, nil)
	require.NoError(t, err)
	defer reloaded.Close()

	require.NoError(t, reloaded.LoadIndex(context.Background(), cfg.Snapshot.Path))

	after, err := reloaded.Search(context.Background(), "Foo", search.Options{MaxResults: 10})
	require.NoError(t, err)
	require.Equal(t, len(before.Results), len(after.Results))

	afterDeps, _ := reloaded.Dependents(filepath.Join(dir, "a.go"))
	require.Equal(t, beforeDeps, afterDeps)
}

func TestEngine_LoadIndexReconcilesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.go")
	gone := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(keep, []byte("package a\nfunc Keep() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(gone, []byte("package a\nfunc Gone() {}\n"), 0o644))

	cfg := newTestConfig(dir)
	cfg.Index.Roots = []string{dir}
	e, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.IndexPaths(context.Background(), []string{dir}))
	waitForCompletion(t, e)
	require.NoError(t, e.SaveIndex(cfg.Snapshot.Path))
	require.NoError(t, e.Close())

	require.NoError(t, os.Remove(gone))

	reloaded, err := New(cfg, nil)
	require.NoError(t, err)
	defer reloaded.Close()
	require.NoError(t, reloaded.LoadIndex(context.Background(), cfg.Snapshot.Path))

	_, ok := reloaded.store.Lookup(keep)
	require.True(t, ok)
	_, ok = reloaded.store.Lookup(gone)
	require.False(t, ok)
}

func TestEngine_LoadIndexRejectsFingerprintMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))

	cfg := newTestConfig(dir)
	e, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.IndexPaths(context.Background(), []string{dir}))
	waitForCompletion(t, e)
	require.NoError(t, e.SaveIndex(cfg.Snapshot.Path))
	require.NoError(t, e.Close())

	changedCfg := cfg
	changedCfg.Index.Extensions = []string{".go", ".rs"}
	reloaded, err := New(changedCfg, nil)
	require.NoError(t, err)
	defer reloaded.Close()

	err = reloaded.LoadIndex(context.Background(), cfg.Snapshot.Path)
	require.Error(t, err)
}
