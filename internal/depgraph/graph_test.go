package depgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fcsx/internal/docid"
)

func TestSetImports_BasicEdges(t *testing.T) {
	g := New()
	a, b := docid.ID(1), docid.ID(2)

	g.SetImports(b, []docid.ID{a})

	require.Equal(t, 1, g.Dependents(a))
	require.ElementsMatch(t, []docid.ID{b}, g.DependentsOf(a))
	require.ElementsMatch(t, []docid.ID{a}, g.ImportsOf(b))
}

func TestSetImports_ReplacesOldEdges(t *testing.T) {
	g := New()
	a, b, c := docid.ID(1), docid.ID(2), docid.ID(3)

	g.SetImports(b, []docid.ID{a})
	require.Equal(t, 1, g.Dependents(a))

	g.SetImports(b, []docid.ID{c})
	require.Equal(t, 0, g.Dependents(a), "old reverse edge should be gone")
	require.Equal(t, 1, g.Dependents(c))
}

func TestRemoveDocument_ClearsIncidentEdges(t *testing.T) {
	g := New()
	a, b, c := docid.ID(1), docid.ID(2), docid.ID(3)

	g.SetImports(b, []docid.ID{a})
	g.SetImports(c, []docid.ID{a})

	g.RemoveDocument(a)
	require.Equal(t, 0, g.Dependents(a))
	require.Empty(t, g.ImportsOf(b))
	require.Empty(t, g.ImportsOf(c))
}

func TestRemoveDocument_RemovesOutgoingEdgesToo(t *testing.T) {
	g := New()
	a, b := docid.ID(1), docid.ID(2)

	g.SetImports(b, []docid.ID{a})
	g.RemoveDocument(b)

	require.Equal(t, 0, g.Dependents(a))
}

func TestInvariant_ImportCountsMatchReverseMap(t *testing.T) {
	// spec §8: for every edge (a,b) in imports, (b,a) in imported_by,
	// and import_counts[b] == len(imported_by[b]).
	g := New()
	a, b, c := docid.ID(1), docid.ID(2), docid.ID(3)

	g.SetImports(b, []docid.ID{a})
	g.SetImports(c, []docid.ID{a})

	require.Equal(t, len(g.DependentsOf(a)), g.Dependents(a))
}

func TestSetImports_SelfImportIgnored(t *testing.T) {
	g := New()
	a := docid.ID(1)
	g.SetImports(a, []docid.ID{a})
	require.Equal(t, 0, g.Dependents(a))
}
