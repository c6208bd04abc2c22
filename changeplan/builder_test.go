package changeplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/semver"
)

func testPkgInfo(t *testing.T, name, version string) collection.PackageInfo {
	t.Helper()
	doc := `{"name":"` + name + `","version":"` + version + `"}`
	m, err := manifest.ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	return collection.PackageInfo{Manifest: m}
}

func TestBuilderInstallAndRemoveNeverCollide(t *testing.T) {
	b := NewBuilder()
	pkg := testPkgInfo(t, "com.vrchat.a", "1.0.0")
	b.InstallLocked(pkg)
	b.Remove("com.vrchat.a", RemoveRequested)

	changes := b.BuildNoResolve()
	ch := changes.PackageChanges["com.vrchat.a"]
	require.NotNil(t, ch.Install)
	assert.Nil(t, ch.Remove)
}

func TestMarkAndSweepRemovesOrphanedTransitive(t *testing.T) {
	locked := map[string]manifest.LockedDependency{
		"A": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{"L": semver.MustParseRange(">=1.0.0")}},
		"L": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}},
	}
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{"A": semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))},
		Locked:       locked,
	}, nil, nil)

	newA := testPkgInfo(t, "A", "1.1.0") // no dependencies anymore: L is orphaned

	b := NewBuilder()
	b.InstallLocked(newA)

	changes := b.Finish(state, []string{"A"})
	removals := changes.Removals()
	assert.Equal(t, RemoveUnused, removals["L"])
	_, stillThere := removals["A"]
	assert.False(t, stillThere)
}

func TestMarkAndSweepKeepsTransitiveStillInUse(t *testing.T) {
	locked := map[string]manifest.LockedDependency{
		"A": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{"L": semver.MustParseRange(">=1.0.0")}},
		"L": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}},
	}
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{"A": semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))},
		Locked:       locked,
	}, nil, nil)

	reinstallA := testPkgInfo(t, "A", "1.0.0")
	reinstallA.Manifest.VpmDependencies = map[string]semver.Range{"L": semver.MustParseRange(">=1.0.0")}

	b := NewBuilder()
	b.InstallLocked(reinstallA)

	changes := b.Finish(state, []string{"A"})
	removals := changes.Removals()
	_, removed := removals["L"]
	assert.False(t, removed)
}

func TestMarkAndSweepUnlockedDependencyProtectsTransitive(t *testing.T) {
	locked := map[string]manifest.LockedDependency{
		"L":     {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}},
		"Other": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{"L": semver.MustParseRange(">=1.0.0")}},
	}
	unlockedManifest, err := manifest.ParsePackageManifest([]byte(`{"name":"U","version":"1.0.0","vpmDependencies":{"L":">=1.0.0"}}`))
	require.NoError(t, err)
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{},
		Locked:       locked,
	}, nil, []project.UnlockedPackage{{Name: "U", Path: "Packages/U", Manifest: unlockedManifest}})

	b := NewBuilder()
	b.Remove("Other", RemoveRequested)

	changes := b.Finish(state, nil)
	removals := changes.Removals()
	_, lRemoved := removals["L"]
	assert.False(t, lRemoved)
	assert.Equal(t, RemoveRequested, removals["Other"])
}
