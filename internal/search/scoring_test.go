package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineScore_AllFactorsNeutral(t *testing.T) {
	s := lineScore(lineScoreInputs{trimmedLineLength: 0, dependents: 0})
	// base(1) * lineLenFactor(len=0 -> 1.0) * dependencyFactor(0 -> 1.0)
	require.InDelta(t, 1.0, s, 1e-9)
}

func TestLineScore_ExactCaseDoubles(t *testing.T) {
	base := lineScore(lineScoreInputs{})
	withCase := lineScore(lineScoreInputs{exactCaseMatch: true})
	require.InDelta(t, base*2.0, withCase, 1e-9)
}

func TestLineScore_SymbolTriples(t *testing.T) {
	base := lineScore(lineScoreInputs{})
	withSymbol := lineScore(lineScoreInputs{isSymbolLine: true})
	require.InDelta(t, base*3.0, withSymbol, 1e-9)
}

func TestLineLengthFactor_FloorsAtPoint3(t *testing.T) {
	require.InDelta(t, 0.3, lineLengthFactor(1_000_000), 1e-6)
}

func TestLineLengthFactor_OneAtZeroLength(t *testing.T) {
	require.InDelta(t, 1.0, lineLengthFactor(0), 1e-9)
}

func TestDependencyFactor_ZeroDependentsIsOne(t *testing.T) {
	require.InDelta(t, 1.0, dependencyFactor(0), 1e-9)
}

func TestDependencyFactor_IncreasesWithDependents(t *testing.T) {
	low := dependencyFactor(1)
	high := dependencyFactor(100)
	require.Greater(t, high, low)
}

func TestFileScore_SymbolDensityCapsAtFour(t *testing.T) {
	score := fileScore(fileScoreInputs{symbolCount: 1000})
	require.InDelta(t, 1.0+4.0, score, 1e-9)
}

func TestFileScore_TestPenaltyReducesScore(t *testing.T) {
	plain := fileScore(fileScoreInputs{})
	test := fileScore(fileScoreInputs{isTestOrExample: true})
	require.Less(t, test, plain)
}

func TestFileScore_FilenameBonusIsMultiplicative(t *testing.T) {
	plain := fileScore(fileScoreInputs{hasSrcLib: true})
	withBonus := fileScore(fileScoreInputs{hasSrcLib: true, stemContainsQuery: true})
	require.InDelta(t, plain*5.0, withBonus, 1e-9)
}

func TestFileScore_ImportBonusCapsAtFive(t *testing.T) {
	score := fileScore(fileScoreInputs{importCount: 1_000_000})
	require.InDelta(t, 1.0+5.0, score, 1e-6)
}
