//go:build leaktests
// +build leaktests

package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestWatchStopReleasesAllGoroutines guards against the fsnotify watcher
// or its debounce goroutine outliving StopWatch (grounded on the
// teacher's internal/indexing/leak_test.go TestIndexerMemoryLeak, same
// build-tag-gated goleak.VerifyNone pattern kept out of the default
// `go test` run since it needs IgnoreCurrent-style care around the test
// binary's own background goroutines).
func TestWatchStopReleasesAllGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))

	ix, _, _, _, _ := newTestIndexer(t, dir)
	ix.cfg.WatchDebounceMs = 10

	ctx := context.Background()
	require.NoError(t, ix.Run(ctx))
	require.NoError(t, ix.StartWatch(ctx))

	ix.StopWatch()
	time.Sleep(100 * time.Millisecond)
}
