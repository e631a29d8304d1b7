package indexer

import (
	"context"

	"go.uber.org/zap"
)

// Reconcile scans the live filesystem under the configured roots and
// diffs it against whatever InsertOrUpdate/RestoreDocument has already
// populated the file store with, then drives the ordinary indexing
// pipeline over only what changed (spec §4.J reconciliation: "runs
// after a successful load... scans the live filesystem, compares mtime
// and size against the snapshot, and schedules removal, reindexing, or
// fresh indexing accordingly... executed via the ordinary indexing
// pipeline").
//
// internal/snapshot owns the on-disk format and Load/Save; it has no
// access to the indexer's unexported discover/processBatch/
// removeOneLocked machinery, so reconciliation is implemented here and
// the composition root calls it once snapshot.Load has returned
// successfully.
func (ix *Indexer) Reconcile(ctx context.Context) error {
	ix.bus.SetState(Reconciling)

	queue := make(chan pathEntry, ix.cfg.QueueMultiplier*ix.cfg.Workers)
	var discoverErr error
	done := make(chan struct{})
	live := make(map[string]pathEntry)
	go func() {
		defer close(done)
		for entry := range queue {
			live[entry.path] = entry
		}
	}()
	discoverErr = discover(ctx, ix.cfg.Roots, ix.cfg, ix.filter, queue, nil)
	close(queue)
	<-done
	if discoverErr != nil && discoverErr != context.Canceled {
		ix.logger.Warn("reconcile discovery ended with error", zap.Error(discoverErr))
	}

	known := ix.store.AllPaths()

	var removals []string
	for _, path := range known {
		if _, ok := live[path]; !ok {
			removals = append(removals, path)
		}
	}

	var toIndex []pathEntry
	for path, entry := range live {
		if id, ok := ix.store.Lookup(path); ok {
			if mtime, size, ok := ix.store.GetStat(id); ok && mtime == entry.mtime && size == entry.size {
				continue // unchanged since the snapshot was taken
			}
		}
		toIndex = append(toIndex, entry)
	}

	if len(removals) > 0 {
		ix.mu.Lock()
		for _, path := range removals {
			ix.removeOneLocked(path)
		}
		ix.mu.Unlock()
	}

	for start := 0; start < len(toIndex); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(toIndex) {
			end = len(toIndex)
		}
		ix.processBatch(toIndex[start:end])
	}

	ix.bus.SetState(ResolvingImports)
	ix.resolveImports()

	ix.bus.SetState(Completed)
	ix.logger.Info("reconciliation completed",
		zap.Int("removed", len(removals)),
		zap.Int("reindexed", len(toIndex)))
	return nil
}
