package installer

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestExtractPackageWritesFiles(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "pkg.zip")
	writeZip(t, zipPath, map[string]string{
		"package.json":          `{"name":"A","version":"1.0.0"}`,
		"Runtime/Scripts/A.cs":  "public class A {}",
	})

	dest := filepath.Join(dir, "Packages", "A")
	require.NoError(t, extractPackage(zipPath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"A"`)

	data, err = os.ReadFile(filepath.Join(dest, "Runtime", "Scripts", "A.cs"))
	require.NoError(t, err)
	assert.Equal(t, "public class A {}", string(data))
}

func TestExtractPackageReplacesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Packages", "A")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stale.txt"), []byte("old"), 0o644))

	zipPath := filepath.Join(dir, "pkg.zip")
	writeZip(t, zipPath, map[string]string{"package.json": `{"name":"A","version":"2.0.0"}`})

	require.NoError(t, extractPackage(zipPath, dest))

	assert.NoFileExists(t, filepath.Join(dest, "stale.txt"))
	assert.FileExists(t, filepath.Join(dest, "package.json"))
}

func TestExtractPackageRejectsTraversalEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../../escape.txt": "gotcha"})

	dest := filepath.Join(dir, "Packages", "A")
	err := extractPackage(zipPath, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeZipEntry)
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestExtractPackageRejectsAbsoluteEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"/etc/passwd": "gotcha"})

	err := extractPackage(zipPath, filepath.Join(dir, "Packages", "A"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeZipEntry)
}
