package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	isDir, err := IsDir(dir)
	require.NoError(t, err)
	require.True(t, isDir)

	_, err = IsDir(file)
	require.Error(t, err)
}

func TestRenameWithFallbackMovesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, RenameWithFallback(src, dst))

	require.False(t, Exists(src))
	contents, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(contents))
}

func TestCopyDirRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.Mkdir(dst, 0o755))

	err := CopyDir(src, dst)
	require.ErrorIs(t, err, errDstExist)
}
