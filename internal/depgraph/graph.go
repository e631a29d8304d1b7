// Package depgraph implements the dependency graph (spec §4.E): a
// forward imports map and its inverse imported_by map. Dependents
// counts are not cached; they are the size of a document's
// imported_by set, read on demand.
//
// Grounded on the teacher's internal/core/universal_graph.go
// (UniversalSymbolGraph): same shape of idea — one RWMutex guarding
// forward and reverse adjacency maps, updated together on every
// mutation — but rebuilt from scratch at a fraction of the size,
// since the teacher's graph also tracks symbol relationship kinds,
// usage locations, and an LRU eviction policy for a semantic-search
// subsystem that is out of scope here (spec §4.E's state is exactly
// two maps plus a count cache).
package depgraph

import (
	"sync"

	"github.com/standardbeagle/fcsx/internal/docid"
)

// Graph tracks which documents import which, and the reverse.
type Graph struct {
	mu         sync.RWMutex
	imports    map[docid.ID]map[docid.ID]struct{}
	importedBy map[docid.ID]map[docid.ID]struct{}
}

// New builds an empty dependency graph.
func New() *Graph {
	return &Graph{
		imports:    make(map[docid.ID]map[docid.ID]struct{}),
		importedBy: make(map[docid.ID]map[docid.ID]struct{}),
	}
}

// SetImports replaces src's outgoing edges atomically: its old reverse
// edges are removed before the new targets are inserted (spec §4.E
// set_imports).
func (g *Graph) SetImports(src docid.ID, targets []docid.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for old := range g.imports[src] {
		g.unlinkReverse(old, src)
	}

	if len(targets) == 0 {
		delete(g.imports, src)
		return
	}

	set := make(map[docid.ID]struct{}, len(targets))
	for _, t := range targets {
		if t == src {
			continue // a file does not count as its own dependent
		}
		set[t] = struct{}{}
		g.linkReverse(t, src)
	}
	g.imports[src] = set
}

// RemoveDocument removes every edge incident on doc: its outgoing
// edges and every edge that named it as a target (spec §4.E
// remove_document).
func (g *Graph) RemoveDocument(doc docid.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for target := range g.imports[doc] {
		g.unlinkReverse(target, doc)
	}
	delete(g.imports, doc)

	for src := range g.importedBy[doc] {
		if set, ok := g.imports[src]; ok {
			delete(set, doc)
			if len(set) == 0 {
				delete(g.imports, src)
			}
		}
	}
	delete(g.importedBy, doc)
}

// Dependents returns |imported_by[doc]| (spec §4.E dependents).
func (g *Graph) Dependents(doc docid.ID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.importedBy[doc])
}

// DependentsOf returns the documents that import doc (spec §4.E
// dependents_of).
func (g *Graph) DependentsOf(doc docid.ID) []docid.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.importedBy[doc]
	if len(set) == 0 {
		return nil
	}
	out := make([]docid.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// ImportsOf returns the documents doc imports.
func (g *Graph) ImportsOf(doc docid.ID) []docid.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.imports[doc]
	if len(set) == 0 {
		return nil
	}
	out := make([]docid.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// EdgeCount returns the total number of outgoing edges in the graph,
// for Engine.Stats() (spec §6 "dependency_edges").
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, targets := range g.imports {
		n += len(targets)
	}
	return n
}

// Edges calls fn once per outgoing edge in the graph, for the snapshot
// writer (component J) to serialize the edge table.
func (g *Graph) Edges(fn func(src, dst docid.ID)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for src, targets := range g.imports {
		for dst := range targets {
			fn(src, dst)
		}
	}
}

// linkReverse and unlinkReverse must be called with mu held for
// writing.
func (g *Graph) linkReverse(target, src docid.ID) {
	set, ok := g.importedBy[target]
	if !ok {
		set = make(map[docid.ID]struct{})
		g.importedBy[target] = set
	}
	set[src] = struct{}{}
}

func (g *Graph) unlinkReverse(target, src docid.ID) {
	set, ok := g.importedBy[target]
	if !ok {
		return
	}
	delete(set, src)
	if len(set) == 0 {
		delete(g.importedBy, target)
	}
}
