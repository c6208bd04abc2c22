package manifest

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// RepositoryIndex is the document served at a repository's URL: package
// name -> version string -> PackageManifest.
type RepositoryIndex struct {
	Name    string
	URL     string
	ID      string
	Author  string
	Packages map[string]map[string]*PackageManifest
}

type wireRepositoryIndex struct {
	Name     json.RawMessage                      `json:"name,omitempty"`
	URL      json.RawMessage                       `json:"url,omitempty"`
	ID       json.RawMessage                       `json:"id,omitempty"`
	Author   json.RawMessage                       `json:"author,omitempty"`
	Packages map[string]map[string]json.RawMessage `json:"packages,omitempty"`
}

// ParseRepositoryIndex decodes a repository index document. Every field is
// optional; a package version entry that fails to decode is dropped rather
// than failing the whole repository, so one corrupt package can't take
// down an entire index fetch.
func ParseRepositoryIndex(data []byte) (*RepositoryIndex, error) {
	raw, err := dedupDecode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode repository index")
	}
	var w wireRepositoryIndex
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "decode repository index")
	}

	idx := &RepositoryIndex{
		Name:   lenientString(w.Name),
		URL:    lenientString(w.URL),
		ID:     lenientString(w.ID),
		Author: lenientString(w.Author),
	}
	if len(w.Packages) > 0 {
		idx.Packages = make(map[string]map[string]*PackageManifest, len(w.Packages))
		for name, versions := range w.Packages {
			vm := make(map[string]*PackageManifest, len(versions))
			for versionStr, raw := range versions {
				pm, err := ParsePackageManifest(raw)
				if err != nil {
					continue
				}
				vm[versionStr] = pm
			}
			idx.Packages[name] = vm
		}
	}
	return idx, nil
}

// LocalCachedRepository is a RepositoryIndex together with the HTTP
// conditional-request bookkeeping and local path needed to refresh it.
type LocalCachedRepository struct {
	Index *RepositoryIndex

	LocalPath string
	ETag      string
	Headers   map[string]string
}
