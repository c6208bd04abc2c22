package changeplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/repocache"
	"github.com/vrc-get-go/vpm/semver"
)

func collectionFromDocs(t *testing.T, docs ...string) *collection.Collection {
	t.Helper()
	idx := &manifest.RepositoryIndex{ID: "r1", Packages: map[string]map[string]*manifest.PackageManifest{}}
	for _, doc := range docs {
		m, err := manifest.ParsePackageManifest([]byte(doc))
		require.NoError(t, err)
		if idx.Packages[m.Name] == nil {
			idx.Packages[m.Name] = map[string]*manifest.PackageManifest{}
		}
		idx.Packages[m.Name][m.Version.String()] = m
	}
	cache := &repocache.Cache{Repo: &manifest.LocalCachedRepository{Index: idx}}
	return collection.New([]*repocache.Cache{cache}, nil)
}

func TestBuildResolveRequestInstallsNewRootDependency(t *testing.T) {
	col := collectionFromDocs(t, `{"name":"A","version":"1.0.0"}`)
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{"A": semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))},
		Locked:       map[string]manifest.LockedDependency{},
	}, nil, nil)

	changes, result := BuildResolveRequest(state, col, false)
	assert.Len(t, result.NewPackages, 1)
	installs := changes.Installs()
	require.Len(t, installs, 1)
	assert.Equal(t, "A", installs[0].Manifest.Name)
}

func TestBuildResolveRequestReaffirmsLockedWithoutUpgrading(t *testing.T) {
	col := collectionFromDocs(t, `{"name":"A","version":"1.0.0"}`, `{"name":"A","version":"2.0.0"}`)
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{"A": semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))},
		Locked: map[string]manifest.LockedDependency{
			"A": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}},
		},
	}, nil, nil)

	changes, _ := BuildResolveRequest(state, col, false)
	installs := changes.Installs()
	require.Len(t, installs, 1)
	assert.Equal(t, semver.MustParse("1.0.0"), installs[0].Version())
}

func TestBuildResolveRequestSurfacesMissingTransitive(t *testing.T) {
	col := collectionFromDocs(t, `{"name":"A","version":"1.0.0","vpmDependencies":{"B":">=1.0.0"}}`)
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{"A": semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))},
		Locked:       map[string]manifest.LockedDependency{},
	}, nil, nil)

	_, result := BuildResolveRequest(state, col, false)
	require.Contains(t, result.MissingDependencies, "B")
	assert.Equal(t, ">=1.0.0", result.MissingDependencies["B"].String())
}
