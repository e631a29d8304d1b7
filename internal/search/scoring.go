package search

import "math"

// lineScore computes the multiplicative per-line score (spec §4.H
// "Per-line scoring"):
//
//	score = base × case × symbol × path × line_len × position × dependency
type lineScoreInputs struct {
	exactCaseMatch    bool // line contains the original-case query
	isSymbolLine      bool // line number equals a symbol definition's line
	hasSrcLib         bool
	trimmedLineLength int
	matchAtLineStart  bool // match offset equals 0 after whitespace trim
	dependents        int
}

func lineScore(in lineScoreInputs) float64 {
	score := 1.0 // base

	if in.exactCaseMatch {
		score *= 2.0
	}
	if in.isSymbolLine {
		score *= 3.0
	}
	if in.hasSrcLib {
		score *= 1.5
	}
	score *= lineLengthFactor(in.trimmedLineLength)
	if in.matchAtLineStart {
		score *= 1.5
	}
	score *= dependencyFactor(in.dependents)

	return score
}

// lineLengthFactor implements "max(0.3, 1 / (1 + ln(1 + len/100)))"
// (spec §4.H): a logarithmic, floored penalty that replaces a harsher
// linear one which "dropped to 0.09 at 1000 chars and unfairly buried
// long function signatures."
func lineLengthFactor(length int) float64 {
	v := 1.0 / (1.0 + math.Log(1.0+float64(length)/100.0))
	if v < 0.3 {
		return 0.3
	}
	return v
}

// dependencyFactor implements "1 + 0.5 × log10(1 + n)" (spec §4.H).
func dependencyFactor(dependents int) float64 {
	return 1.0 + 0.5*math.Log10(1.0+float64(dependents))
}

// filenameBonus is the multiplicative override applied when a match
// is synthesized from a FileName symbol (spec §4.H "Filename-only
// fallback": "a ×3 scoring bonus").
const filenameBonus = 3.0

// fileScoreInputs are the FileMetadata-derived facts feeding the
// file-level fast score (spec §4.H "File-level (fast) score").
type fileScoreInputs struct {
	symbolCount       int
	hasSrcLib         bool
	importCount       int
	isTestOrExample   bool
	stemContainsQuery bool
}

// fileScore implements:
//
//	file_score = base + symbol_density + path_bonus + import_bonus
//	             − test_penalty + filename_bonus
func fileScore(in fileScoreInputs) float64 {
	const base = 1.0

	symbolDensity := 0.5 * float64(in.symbolCount)
	if symbolDensity > 4 {
		symbolDensity = 4
	}

	pathBonus := 0.0
	if in.hasSrcLib {
		pathBonus = 2.0
	}

	importBonus := math.Log10(1.0+float64(in.importCount)) * 2.0
	if importBonus > 5 {
		importBonus = 5
	}

	testPenalty := 0.0
	if in.isTestOrExample {
		testPenalty = base * 0.3
	}

	score := base + symbolDensity + pathBonus + importBonus - testPenalty
	if in.stemContainsQuery {
		score *= 5.0 // filename_bonus, multiplicative override
	}
	return score
}
