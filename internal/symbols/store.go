package symbols

import (
	"strings"
	"sync"

	"github.com/standardbeagle/fcsx/internal/docid"
)

// Store holds each document's resolved Symbol list, so the search
// engine's symbol-only search and per-line symbol-definition scoring
// factor (spec §4.H) can look up "does this doc have a symbol at this
// line" without re-running extraction. Grounded on the teacher's
// internal/core/symbol.go SymbolIndex, narrowed from its
// definition/reference/metrics triple (built for the semantic-search
// subsystem) down to the one per-document list spec §4.D's data model
// actually calls for.
type Store struct {
	mu   sync.RWMutex
	byID map[docid.ID][]Symbol
}

// NewStore builds an empty symbol store.
func NewStore() *Store {
	return &Store{byID: make(map[docid.ID][]Symbol)}
}

// Set replaces doc's symbol list.
func (s *Store) Set(doc docid.ID, syms []Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[doc] = syms
}

// Get returns doc's symbol list.
func (s *Store) Get(doc docid.ID) []Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[doc]
}

// All returns a snapshot of every document's symbol list, for the
// snapshot writer (component J) to serialize the symbol table.
func (s *Store) All() map[docid.ID][]Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[docid.ID][]Symbol, len(s.byID))
	for id, syms := range s.byID {
		out[id] = syms
	}
	return out
}

// Remove drops doc's symbol list (spec §4.F remove: "drops... every
// associated symbol/metadata entry").
func (s *Store) Remove(doc docid.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, doc)
}

// Count returns the number of symbols recorded for doc (used to
// populate FileMetadata.SymbolCount).
func (s *Store) Count(doc docid.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID[doc])
}

// LineHasDefinition reports whether doc has any non-filename symbol
// starting at line (spec §4.H per-line "symbol" scoring factor).
func (s *Store) LineHasDefinition(doc docid.ID, line int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sym := range s.byID[doc] {
		if sym.Kind != FileName && sym.Line == line {
			return true
		}
	}
	return false
}

// FileNameSymbolMatching returns doc's FileName symbol if its name
// contains query (case-insensitive), for the filename-match fallback
// (spec §4.H "Filename-only fallback").
func (s *Store) FileNameSymbolMatching(doc docid.ID, lowercasedQuery string) (Symbol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sym := range s.byID[doc] {
		if sym.Kind == FileName && strings.Contains(strings.ToLower(sym.Name), lowercasedQuery) {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Matching returns every symbol in doc whose name contains
// lowercasedQuery (case-insensitive), for symbol-only search.
func (s *Store) Matching(doc docid.ID, lowercasedQuery string) []Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Symbol
	for _, sym := range s.byID[doc] {
		if strings.Contains(strings.ToLower(sym.Name), lowercasedQuery) {
			out = append(out, sym)
		}
	}
	return out
}
