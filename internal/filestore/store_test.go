package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestInsertOrUpdate_DedupsByPath(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.go", []byte("package a"))

	s := New(0)
	id1, isNew1 := s.InsertOrUpdate(path, 100, 9)
	require.True(t, isNew1)

	id2, isNew2 := s.InsertOrUpdate(path, 100, 9)
	require.False(t, isNew2)
	require.Equal(t, id1, id2)
}

func TestGetContent_ReadsMappedFile(t *testing.T) {
	dir := t.TempDir()
	want := []byte("package a\n\nfunc Foo() {}\n")
	path := writeTempFile(t, dir, "a.go", want)

	s := New(0)
	id, _ := s.InsertOrUpdate(path, 1, int64(len(want)))

	got, err := s.GetContent(id)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestGetContent_OversizedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "big.go", []byte("x"))

	s := New(1) // cap of 1 byte, file is recorded as size 100
	id, _ := s.InsertOrUpdate(path, 1, 100)

	_, err := s.GetContent(id)
	require.Error(t, err)
}

func TestRemove_ClearsDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.go", []byte("package a"))

	s := New(0)
	id, _ := s.InsertOrUpdate(path, 1, 9)
	s.Remove(id)

	_, ok := s.GetPath(id)
	require.False(t, ok)

	id2, isNew := s.InsertOrUpdate(path, 1, 9)
	require.True(t, isNew)
	require.NotEqual(t, id, id2, "doc_id should not be recycled after Remove")
}

func TestGetMetadata_DefaultBeforeIndexing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	path := writeTempFile(t, dir, "src/a.go", []byte("package a"))

	s := New(0)
	id, _ := s.InsertOrUpdate(path, 1, 9)

	m, ok := s.GetMetadata(id)
	require.True(t, ok)
	require.Equal(t, 0, m.SymbolCount)
	require.True(t, m.HasSrcLib)
}

func TestSetSymbolCount_UpdatesMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.go", []byte("package a"))

	s := New(0)
	id, _ := s.InsertOrUpdate(path, 1, 9)
	s.SetSymbolCount(id, 4)

	m, _ := s.GetMetadata(id)
	require.Equal(t, 4, m.SymbolCount)
}
