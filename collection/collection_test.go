package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/repocache"
	"github.com/vrc-get-go/vpm/semver"
)

func pkgManifest(t *testing.T, name, version string) *manifest.PackageManifest {
	t.Helper()
	doc := `{"name":"` + name + `","version":"` + version + `"}`
	m, err := manifest.ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	return m
}

func yankedManifest(t *testing.T, name, version string) *manifest.PackageManifest {
	t.Helper()
	doc := `{"name":"` + name + `","version":"` + version + `","vrc-get":{"yanked":true}}`
	m, err := manifest.ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	return m
}

func repoWithPackage(t *testing.T, id string, pms ...*manifest.PackageManifest) *repocache.Cache {
	t.Helper()
	idx := &manifest.RepositoryIndex{ID: id, Packages: map[string]map[string]*manifest.PackageManifest{}}
	for _, pm := range pms {
		if idx.Packages[pm.Name] == nil {
			idx.Packages[pm.Name] = map[string]*manifest.PackageManifest{}
		}
		idx.Packages[pm.Name][pm.Version.String()] = pm
	}
	return &repocache.Cache{Repo: &manifest.LocalCachedRepository{Index: idx}}
}

func TestFindSpecificIgnoresYank(t *testing.T) {
	repo := repoWithPackage(t, "r1", yankedManifest(t, "com.vrchat.a", "1.1.0"), pkgManifest(t, "com.vrchat.a", "1.0.0"))
	col := New([]*repocache.Cache{repo}, nil)

	info, ok := col.Find("com.vrchat.a", Specific(semver.MustParse("1.1.0")))
	require.True(t, ok)
	assert.Equal(t, semver.MustParse("1.1.0"), info.Version())
}

func TestFindLatestSkipsYanked(t *testing.T) {
	repo := repoWithPackage(t, "r1", yankedManifest(t, "com.vrchat.a", "1.1.0"), pkgManifest(t, "com.vrchat.a", "1.0.0"))
	col := New([]*repocache.Cache{repo}, nil)

	info, ok := col.Find("com.vrchat.a", Latest(false, nil))
	require.True(t, ok)
	assert.Equal(t, semver.MustParse("1.0.0"), info.Version())
}

func TestFindRangeRespectsUnityCompatibility(t *testing.T) {
	pm := pkgManifest(t, "com.vrchat.a", "2.0.0")
	pm.Unity = &manifest.PartialUnityVersion{Major: 2022, Minor: 3}
	repo := repoWithPackage(t, "r1", pm)
	col := New([]*repocache.Cache{repo}, nil)

	r := semver.MustParseRange(">=1.0.0")
	_, ok := col.Find("com.vrchat.a", RangeSelector(r, &manifest.PartialUnityVersion{Major: 2021, Minor: 3}, semver.Minimum))
	assert.False(t, ok)

	_, ok = col.Find("com.vrchat.a", RangeSelector(r, &manifest.PartialUnityVersion{Major: 2022, Minor: 3}, semver.Minimum))
	assert.True(t, ok)
}

func TestFindPrefersRepoOverUnlockedOnTie(t *testing.T) {
	repo := repoWithPackage(t, "r1", pkgManifest(t, "com.vrchat.a", "1.0.0"))
	unlocked := []UnlockedPackage{{Name: "com.vrchat.a", Manifest: pkgManifest(t, "com.vrchat.a", "1.0.0")}}
	col := New([]*repocache.Cache{repo}, unlocked)

	info, ok := col.Find("com.vrchat.a", Specific(semver.MustParse("1.0.0")))
	require.True(t, ok)
	assert.False(t, info.Source.Local)
}

func TestFindResolvesDeclaredAlias(t *testing.T) {
	doc := `{"name":"com.vrchat.a","version":"1.0.0","vrc-get":{"aliases":["vpm-a"]}}`
	m, err := manifest.ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	repo := repoWithPackage(t, "r1", m)
	col := New([]*repocache.Cache{repo}, nil)

	info, ok := col.Find("vpm-a", Specific(semver.MustParse("1.0.0")))
	require.True(t, ok)
	assert.Equal(t, "com.vrchat.a", info.Manifest.Name)
}

func TestAllVersionsSortedDescending(t *testing.T) {
	repo := repoWithPackage(t, "r1",
		pkgManifest(t, "com.vrchat.a", "1.0.0"),
		pkgManifest(t, "com.vrchat.a", "2.0.0"),
		pkgManifest(t, "com.vrchat.a", "1.5.0"),
	)
	col := New([]*repocache.Cache{repo}, nil)

	versions := col.AllVersions("com.vrchat.a")
	require.Len(t, versions, 3)
	assert.Equal(t, semver.MustParse("2.0.0"), versions[0].Version())
	assert.Equal(t, semver.MustParse("1.5.0"), versions[1].Version())
	assert.Equal(t, semver.MustParse("1.0.0"), versions[2].Version())
}
