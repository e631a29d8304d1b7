package errx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := New(IOError, "filestore.GetContent", errors.New("boom")).WithPath("/tmp/a.go")

	require.True(t, errors.Is(err, IOError))
	require.False(t, errors.Is(err, EncodingError))
}

func TestError_UnwrapReturnsUnderlying(t *testing.T) {
	cause := errors.New("disk full")
	err := New(IOError, "snapshot.Save", cause)

	require.Equal(t, cause, errors.Unwrap(err))
}

func TestKindOf(t *testing.T) {
	err := New(SnapshotIncompatible, "snapshot.Load", errors.New("bad magic"))

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, SnapshotIncompatible, kind)

	_, ok = KindOf(errors.New("plain error"))
	require.False(t, ok)
}

func TestError_MessageIncludesPathWhenSet(t *testing.T) {
	withPath := New(IOError, "op", errors.New("x")).WithPath("/tmp/a.go")
	require.Contains(t, withPath.Error(), "/tmp/a.go")

	withoutPath := New(IOError, "op", errors.New("x"))
	require.NotContains(t, withoutPath.Error(), "()")
}
