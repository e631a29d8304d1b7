package trigram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fcsx/internal/docid"
)

func TestIndex_InsertAndSearch(t *testing.T) {
	idx := New()
	idx.Insert(docid.ID(1), []byte("hello world"))
	idx.Insert(docid.ID(2), []byte("hello there"))
	idx.Insert(docid.ID(3), []byte("goodbye world"))

	got := idx.Search([]byte("hello"))
	require.True(t, got.Contains(1))
	require.True(t, got.Contains(2))
	require.False(t, got.Contains(3))

	got = idx.Search([]byte("world"))
	require.True(t, got.Contains(1))
	require.False(t, got.Contains(2))
	require.True(t, got.Contains(3))
}

func TestIndex_ShortQueryReturnsAll(t *testing.T) {
	idx := New()
	idx.Insert(docid.ID(1), []byte("hello"))
	idx.Insert(docid.ID(2), []byte("world"))

	got := idx.Search([]byte("he"))
	require.Equal(t, uint64(2), got.GetCardinality())
}

func TestIndex_Remove(t *testing.T) {
	idx := New()
	idx.Insert(docid.ID(1), []byte("hello world"))
	idx.Insert(docid.ID(2), []byte("hello there"))

	idx.Remove(docid.ID(1))

	all := idx.AllDocuments()
	require.False(t, all.Contains(1))
	require.True(t, all.Contains(2))

	got := idx.Search([]byte("hello"))
	require.False(t, got.Contains(1))
	require.True(t, got.Contains(2))
}

func TestIndex_NoFalseNegatives(t *testing.T) {
	// Every document containing the query must be a candidate (spec §8:
	// "For any query q of length >= 3 and any document d containing q
	// ... d is in the candidate set returned by G.search").
	idx := New()
	docs := map[docid.ID]string{
		1: "the quick brown fox",
		2: "jumps over the lazy dog",
		3: "quick silver and quicksand",
	}
	for id, text := range docs {
		idx.Insert(id, []byte(text))
	}

	for id, text := range docs {
		for _, q := range []string{"quick", "the", "dog", "silver"} {
			if !contains(text, q) {
				continue
			}
			cands := idx.Search([]byte(q))
			require.True(t, cands.Contains(uint32(id)), "doc %d missing from candidates for %q", id, q)
		}
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
