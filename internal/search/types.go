// Package search implements the search engine (spec §4.H): query
// flow, two-phase ranking, and the scoring formulas that turn
// candidate documents into ranked matches.
package search

import (
	"github.com/standardbeagle/fcsx/internal/docid"
)

// MatchType classifies what kind of thing a Match's line represents
// (spec §4.H: "a match type (text, symbol-definition, symbol-reference,
// filename)").
type MatchType uint8

const (
	MatchText MatchType = iota
	MatchSymbolDefinition
	MatchSymbolReference
	MatchFilename
)

func (m MatchType) String() string {
	switch m {
	case MatchText:
		return "text"
	case MatchSymbolDefinition:
		return "symbol-definition"
	case MatchSymbolReference:
		return "symbol-reference"
	case MatchFilename:
		return "filename"
	default:
		return "unknown"
	}
}

// Match is one scored search result (spec §4.H "search match").
type Match struct {
	DocID      docid.ID
	Path       string
	Line       int
	Content    string
	Type       MatchType
	Score      float64
	Dependents int
}

// RankMode selects how candidates are ranked (spec §4.H step 5).
type RankMode uint8

const (
	RankAuto RankMode = iota
	RankFast
	RankFull
)

func (m RankMode) String() string {
	switch m {
	case RankAuto:
		return "auto"
	case RankFast:
		return "fast"
	case RankFull:
		return "full"
	default:
		return "unknown"
	}
}

// Options configures one search call (spec §6 search options).
type Options struct {
	MaxResults   int
	IncludePaths []string
	ExcludePaths []string
	IsRegex      bool
	SymbolsOnly  bool
	RankMode     RankMode
	CancelToken  <-chan struct{}
}

// Response is the bounded result of a search call (spec §6 / §4.H
// step 8).
type Response struct {
	Results            []Match
	RankModeUsed       RankMode
	TotalCandidates    int
	CandidatesSearched int
	ElapsedMS          int64
	Warning            string
	Cancelled          bool
}
