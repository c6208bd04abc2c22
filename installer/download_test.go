package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/manifest"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type stubDoer struct {
	body    []byte
	status  int
	calls   int
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.calls++
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d", status),
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}, nil
}

func testPkg(t *testing.T, name, version, url string) collection.PackageInfo {
	t.Helper()
	m, err := manifest.ParsePackageManifest([]byte(fmt.Sprintf(`{"name":%q,"version":%q,"url":%q}`, name, version, url)))
	require.NoError(t, err)
	return collection.PackageInfo{Manifest: m}
}

func TestFetchZipDownloadsAndCachesOnFirstUse(t *testing.T) {
	configDir := t.TempDir()
	payload := zipBytes(t, map[string]string{"package.json": `{"name":"A","version":"1.0.0"}`})
	doer := &stubDoer{body: payload}
	pkg := testPkg(t, "A", "1.0.0", "https://example.invalid/a.zip")

	path, err := fetchZip(context.Background(), doer, configDir, pkg)
	require.NoError(t, err)
	assert.Equal(t, 1, doer.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, shaPath := cachePaths(configDir, pkg)
	assert.FileExists(t, shaPath)
}

func TestFetchZipReusesVerifiedCache(t *testing.T) {
	configDir := t.TempDir()
	payload := zipBytes(t, map[string]string{"package.json": `{"name":"A","version":"1.0.0"}`})
	doer := &stubDoer{body: payload}
	pkg := testPkg(t, "A", "1.0.0", "https://example.invalid/a.zip")

	_, err := fetchZip(context.Background(), doer, configDir, pkg)
	require.NoError(t, err)
	require.Equal(t, 1, doer.calls)

	_, err = fetchZip(context.Background(), doer, configDir, pkg)
	require.NoError(t, err)
	assert.Equal(t, 1, doer.calls, "second fetch should reuse the verified cache without another network call")
}

func TestFetchZipFallsBackToNetworkOnCorruptCache(t *testing.T) {
	configDir := t.TempDir()
	payload := zipBytes(t, map[string]string{"package.json": `{"name":"A","version":"1.0.0"}`})
	doer := &stubDoer{body: payload}
	pkg := testPkg(t, "A", "1.0.0", "https://example.invalid/a.zip")

	zipPath, err := fetchZip(context.Background(), doer, configDir, pkg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(zipPath, []byte("corrupted"), 0o644))

	_, err = fetchZip(context.Background(), doer, configDir, pkg)
	require.NoError(t, err)
	assert.Equal(t, 2, doer.calls, "a cache that fails verification should trigger a re-download")

	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchZipRejectsStatusError(t *testing.T) {
	configDir := t.TempDir()
	doer := &stubDoer{status: http.StatusNotFound}
	pkg := testPkg(t, "A", "1.0.0", "https://example.invalid/missing.zip")

	_, err := fetchZip(context.Background(), doer, configDir, pkg)
	require.Error(t, err)
}

func TestCachePathsIncludeNameAndVersion(t *testing.T) {
	pkg := testPkg(t, "com.example.pkg", "1.2.3", "https://example.invalid/x.zip")
	zipPath, shaPath := cachePaths("/config", pkg)
	assert.Equal(t, filepath.Join("/config", "Repos", "com.example.pkg", "vrc-get-com.example.pkg-1.2.3.zip"), zipPath)
	assert.Equal(t, zipPath+".sha256", shaPath)
}
