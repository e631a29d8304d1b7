package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fcsx/internal/config"
	"github.com/standardbeagle/fcsx/internal/pathfilter"
)

// pathEntry is one file accepted by discovery and pushed into the bounded
// queue (spec §4.I "pushes path entries into a bounded queue").
type pathEntry struct {
	path  string
	size  int64
	mtime int64
}

// discover walks each root, applying the path filter and extension
// whitelist, and blocks sending into out when it is full rather than
// growing an unbounded buffer (spec §4.I "Backpressure"). Oversized files
// are not filtered out here: they are still pushed through so
// filestore.Store.InsertOrUpdate can register them and report them as
// skipped (spec §4.F), rather than vanishing from the path set entirely.
// Grounded on the teacher's FileScanner.ScanDirectory (pipeline.go),
// trimmed of the gitignore/tree-sitter-language machinery this core
// doesn't carry.
func discover(ctx context.Context, roots []string, cfg config.Index, filter *pathfilter.Filter, out chan<- pathEntry, bus *ProgressBus) error {
	visited := make(map[string]bool)

	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if info.IsDir() {
				real, err := filepath.EvalSymlinks(path)
				if err == nil {
					if visited[real] {
						return filepath.SkipDir
					}
					visited[real] = true
				}
				return nil
			}

			if !hasAllowedExtension(path, cfg.Extensions) {
				return nil
			}
			if filter != nil && filter.HasPatterns() && !filter.Matches(path) {
				return nil
			}

			entry := pathEntry{path: path, size: info.Size(), mtime: info.ModTime().Unix()}
			select {
			case out <- entry:
				if bus != nil {
					bus.IncrementDiscovered()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func hasAllowedExtension(path string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
