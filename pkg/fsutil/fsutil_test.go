package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	require.NoError(t, WriteFile(path, []byte("first"), 0o644))
	require.NoError(t, WriteFile(path, []byte("second"), 0o644))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(contents))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteFileFailedRenameKeepsOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	crash := errors.New("crashed before rename")
	w := AtomicWriter{Rename: func(string, string) error { return crash }}
	err := w.WriteFile(path, []byte("new"), 0o644)
	require.ErrorIs(t, err, crash)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old", string(contents))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file should be cleaned up")
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = Exists(dir)
	require.NoError(t, err)
	require.True(t, exists)
}
