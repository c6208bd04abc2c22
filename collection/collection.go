// Package collection merges a set of repository caches and locally
// present, unlocked packages into a single queryable view, the thing the
// resolver consults whenever it needs "the best version of X".
package collection

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/repocache"
	"github.com/vrc-get-go/vpm/semver"
)

// Source identifies where a PackageInfo came from.
type Source struct {
	RepoID   string // empty when Local is true
	RepoName string
	Local    bool
}

// PackageInfo is a manifest together with the provenance the driver needs
// to report back ("found in repo X" vs. "already on disk, unlocked").
type PackageInfo struct {
	Manifest *manifest.PackageManifest
	Source   Source
}

// Version is a convenience accessor used throughout the resolver.
func (p PackageInfo) Version() semver.Version { return p.Manifest.Version }

// UnlockedPackage is a package.json found under Packages/<name>/ that is
// not recorded in vpm-manifest.json's locked map.
type UnlockedPackage struct {
	Name     string
	Path     string
	Manifest *manifest.PackageManifest // nil if package.json is missing or unparsable
}

// Collection merges repository caches (in priority order: pre-defined
// repos first, then user repos in settings order) with the unlocked
// packages found on disk.
type Collection struct {
	repos    []*repocache.Cache
	unlocked []UnlockedPackage

	cache *lru.Cache[string, []PackageInfo]
}

// New builds a Collection. repos must already be in the priority order
// ties should break by (pre-defined repos, then user repos in settings
// order); unlocked is the project's unlocked package list.
func New(repos []*repocache.Cache, unlocked []UnlockedPackage) *Collection {
	c, _ := lru.New[string, []PackageInfo](256)
	return &Collection{repos: repos, unlocked: unlocked, cache: c}
}

// AllVersions returns every known PackageInfo for name across all
// repositories and unlocked directories, highest version first; ties
// between equal versions break by repository priority order (unlocked
// packages sort after every repository hit, since an unlocked package is
// never a candidate for a fresh install — see VersionSelector's callers).
func (c *Collection) AllVersions(name string) []PackageInfo {
	name = c.canonicalName(name)
	if cached, ok := c.cache.Get(name); ok {
		return cached
	}

	var out []PackageInfo
	for _, repo := range c.repos {
		if repo.Repo.Index.Packages == nil {
			continue
		}
		versions, ok := repo.Repo.Index.Packages[name]
		if !ok {
			continue
		}
		repoID := repo.Repo.Index.ID
		repoName := repo.Repo.Index.Name
		for _, pm := range versions {
			out = append(out, PackageInfo{Manifest: pm, Source: Source{RepoID: repoID, RepoName: repoName}})
		}
	}
	for _, u := range c.unlocked {
		if u.Name != name || u.Manifest == nil {
			continue
		}
		out = append(out, PackageInfo{Manifest: u.Manifest, Source: Source{Local: true}})
	}

	sortByVersionDescending(out)
	c.cache.Add(name, out)
	return out
}

// canonicalName resolves name to the package name it actually indexes
// under: name itself if any repo or unlocked package already has that
// name directly, otherwise the canonical name of whichever package
// declares name as one of its aliases (`vrc-get i --name <alias>`
// support). Unresolvable names pass through unchanged so a subsequent
// lookup simply finds nothing.
func (c *Collection) canonicalName(name string) string {
	for _, repo := range c.repos {
		if _, ok := repo.Repo.Index.Packages[name]; ok {
			return name
		}
	}
	for _, u := range c.unlocked {
		if u.Name == name {
			return name
		}
	}

	for _, repo := range c.repos {
		for canonical, versions := range repo.Repo.Index.Packages {
			for _, pm := range versions {
				if containsString(pm.Aliases, name) {
					return canonical
				}
			}
		}
	}
	for _, u := range c.unlocked {
		if u.Manifest != nil && containsString(u.Manifest.Aliases, name) {
			return u.Name
		}
	}
	return name
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func sortByVersionDescending(infos []PackageInfo) {
	// insertion sort: the candidate lists per name are small, and a stable
	// sort keeps ties in the (repo-priority, then unlocked-last) order
	// AllVersions already built them in.
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0 && infos[j].Version().GreaterThan(infos[j-1].Version()); j-- {
			infos[j], infos[j-1] = infos[j-1], infos[j]
		}
	}
}

// UnityCompatible reports whether a package's unity hint is satisfied by
// projectUnity: absent hint is always compatible; otherwise the hint must
// be <= the project's version by (major, minor).
func UnityCompatible(pm *manifest.PackageManifest, projectUnity *manifest.PartialUnityVersion) bool {
	if pm.Unity == nil {
		return true
	}
	if projectUnity == nil {
		return true
	}
	return pm.Unity.Compare(*projectUnity) <= 0
}

// Find resolves name under selector against this collection, returning
// the winning PackageInfo. Ties among equal-version candidates break by
// repository priority order, which AllVersions already encodes.
func (c *Collection) Find(name string, selector VersionSelector) (PackageInfo, bool) {
	for _, info := range c.AllVersions(name) {
		if selector.accepts(info) {
			return info, true
		}
	}
	return PackageInfo{}, false
}
