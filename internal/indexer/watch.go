package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/standardbeagle/fcsx/internal/filestore"
)

// eventKind mirrors the three kinds spec §6 names for the watcher
// collaborator interface: {created, modified, removed}.
type eventKind int

const (
	eventCreated eventKind = iota
	eventModified
	eventRemoved
)

// fsWatcher wraps fsnotify with debounced batching, grounded directly on
// the teacher's FileWatcher/eventDebouncer (watcher.go): addEvent stores
// the latest kind per path and resets a time.AfterFunc timer; flush
// drains the accumulated map and re-enters the indexing pipeline for
// each affected path (spec §4.I "Filesystem event... re-enters indexing
// for the affected document(s); remove events remove the document from
// F, G, and E").
type fsWatcher struct {
	ix       *Indexer
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu     sync.Mutex
	events map[string]eventKind
	timer  *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartWatch begins fsnotify-driven incremental reindexing over roots
// already configured for ix. Safe to call at most once per Indexer.
func (ix *Indexer) StartWatch(parent context.Context) error {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	if ix.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	fw := &fsWatcher{
		ix:       ix,
		watcher:  w,
		debounce: time.Duration(ix.cfg.WatchDebounceMs) * time.Millisecond,
		events:   make(map[string]eventKind),
		ctx:      ctx,
		cancel:   cancel,
	}
	if fw.debounce <= 0 {
		fw.debounce = 250 * time.Millisecond
	}

	for _, root := range ix.cfg.Roots {
		if err := fw.addWatches(root); err != nil {
			w.Close()
			cancel()
			return err
		}
	}

	fw.wg.Add(1)
	go fw.processEvents()

	ix.watcher = fw
	return nil
}

// StopWatch stops watching; it is a no-op if watching was never started.
func (ix *Indexer) StopWatch() {
	ix.watchMu.Lock()
	fw := ix.watcher
	ix.watcher = nil
	ix.watchMu.Unlock()
	if fw == nil {
		return
	}
	fw.cancel()
	fw.watcher.Close()
	fw.wg.Wait()
}

func (fw *fsWatcher) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		if fw.ix.filter != nil && fw.ix.filter.HasPatterns() && !fw.ix.filter.Matches(path) {
			return nil
		}
		if addErr := fw.watcher.Add(path); addErr != nil {
			fw.ix.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(addErr))
		}
		return nil
	})
}

func (fw *fsWatcher) processEvents() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.ix.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (fw *fsWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0 {
		fw.addEvent(path, eventRemoved)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if addErr := fw.watcher.Add(path); addErr != nil {
				fw.ix.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(addErr))
			}
		}
		return
	}
	if !hasAllowedExtension(path, fw.ix.cfg.Extensions) {
		return
	}
	if fw.ix.filter != nil && fw.ix.filter.HasPatterns() && !fw.ix.filter.Matches(path) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		fw.addEvent(path, eventCreated)
	} else if event.Op&fsnotify.Write != 0 {
		fw.addEvent(path, eventModified)
	}
}

func (fw *fsWatcher) addEvent(path string, kind eventKind) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.events[path] = kind
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.flush)
}

// flush re-enters indexing for created/modified paths and removes
// deleted ones from F, G, and E, matching spec §4.I's filesystem-event
// transition.
func (fw *fsWatcher) flush() {
	fw.mu.Lock()
	events := fw.events
	fw.events = make(map[string]eventKind)
	fw.mu.Unlock()
	if len(events) == 0 {
		return
	}

	var batch []pathEntry
	for path, kind := range events {
		if kind == eventRemoved {
			fw.ix.mu.Lock()
			fw.ix.removeOneLocked(path)
			fw.ix.mu.Unlock()
			continue
		}
		canonical, err := filestore.CanonicalPath(path)
		if err != nil {
			continue
		}
		info, err := os.Stat(canonical)
		if err != nil {
			continue
		}
		batch = append(batch, pathEntry{path: canonical, size: info.Size(), mtime: info.ModTime().Unix()})
	}
	if len(batch) > 0 {
		fw.ix.processBatch(batch)
		fw.ix.resolveImports()
	}
}
