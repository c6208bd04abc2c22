// Package repocache manages the on-disk JSON cache of repository indices:
// loading a cached copy, refreshing it against its remote URL with an
// If-None-Match conditional request, and keeping the two pre-defined
// official/curated repositories seeded with stable file names.
package repocache

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/internal/fs"
	"github.com/vrc-get-go/vpm/manifest"
)

// Well-known repository identities, seeded into a fresh Environment.
const (
	OfficialID       = "com.vrchat.repos.official"
	OfficialURL      = "https://packages.vrchat.com/official?download"
	OfficialFileName = "vrc-official.json"

	CuratedID       = "com.vrchat.repos.curated"
	CuratedURL      = "https://packages.vrchat.com/curated?download"
	CuratedFileName = "vrc-curated.json"
)

// Cache owns the on-disk representation of one repository: its JSON file
// and the in-memory parsed form kept in sync with it.
type Cache struct {
	Repo *manifest.LocalCachedRepository
}

// Load reads and parses a cache file from disk. A missing file is an
// error; callers that need "does this cache exist" should os.Stat
// first — Load exists for the case where the caller already knows the
// file should be there.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read repository cache %s", path)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Cache, error) {
	var w wireCacheFile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrapf(err, "decode repository cache %s", path)
	}
	idx, err := manifest.ParseRepositoryIndex(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode repository cache %s", path)
	}
	return &Cache{Repo: &manifest.LocalCachedRepository{
		Index:     idx,
		LocalPath: path,
		ETag:      w.ETag,
		Headers:   w.Headers,
	}}, nil
}

// wireCacheFile captures just the cache-specific envelope fields
// (ETag, headers) layered on top of the repository index document; the
// index itself is decoded separately via manifest.ParseRepositoryIndex.
// Save writes back only name, url, id, author, packages, etag and headers;
// other keys of the document are not kept.
type wireCacheFile struct {
	ETag    string            `json:"etag,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Save writes the cache atomically: the index document's fields plus the
// ETag/headers envelope, written to a temp file in the same directory and
// renamed over the destination so a concurrent reader never observes a
// half-written file and the ETag update is atomic with the body it tags.
func (c *Cache) Save() error {
	doc, err := c.encode()
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.Repo.LocalPath)
	tmp, err := os.CreateTemp(dir, ".repocache-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write repository cache %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close repository cache %s", tmpName)
	}
	if err := fs.RenameWithFallback(tmpName, c.Repo.LocalPath); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replace repository cache %s", c.Repo.LocalPath)
	}
	return nil
}

func (c *Cache) encode() ([]byte, error) {
	out := map[string]interface{}{
		"name":     c.Repo.Index.Name,
		"url":      c.Repo.Index.URL,
		"id":       c.Repo.Index.ID,
		"author":   c.Repo.Index.Author,
		"packages": c.Repo.Index.Packages,
		"etag":     c.Repo.ETag,
	}
	if len(c.Repo.Headers) > 0 {
		out["headers"] = c.Repo.Headers
	}
	return json.MarshalIndent(out, "", "  ")
}

// HTTPDoer is the minimal surface Refresh needs from an HTTP client; the
// standard library's *http.Client satisfies it directly.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Refresh sends a conditional GET against the repository's URL using the
// stored ETag. On 304 the prior payload is kept as-is. On 200 the body is
// re-parsed and the index, ETag, and local file are all updated. On any
// other failure (network error, non-304/200 status, bad body) the prior
// payload is kept and the error is returned for the caller to log — it is
// never fatal to the overall refresh fan-out.
func (c *Cache) Refresh(ctx context.Context, client HTTPDoer) error {
	if c.Repo.Index.URL == "" {
		return errors.New("repository has no URL to refresh from")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Repo.Index.URL, nil)
	if err != nil {
		return errors.Wrap(err, "build refresh request")
	}
	for k, v := range c.Repo.Headers {
		req.Header.Set(k, v)
	}
	if c.Repo.ETag != "" {
		req.Header.Set("If-None-Match", c.Repo.ETag)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "refresh repository")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("refresh repository: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read refresh body")
	}
	idx, err := manifest.ParseRepositoryIndex(body)
	if err != nil {
		return errors.Wrap(err, "parse refreshed repository")
	}

	c.Repo.Index = idx
	c.Repo.ETag = resp.Header.Get("ETag")
	return c.Save()
}

// NewSeed builds a fresh, empty Cache for a just-added repository, ready
// for its first Refresh.
func NewSeed(localPath, url, id string, headers map[string]string) *Cache {
	return &Cache{Repo: &manifest.LocalCachedRepository{
		Index:     &manifest.RepositoryIndex{URL: url, ID: id, Packages: map[string]map[string]*manifest.PackageManifest{}},
		LocalPath: localPath,
		Headers:   headers,
	}}
}
