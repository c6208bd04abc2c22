package installer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrc-get-go/vpm/changeplan"
	"github.com/vrc-get-go/vpm/environment"
	"github.com/vrc-get-go/vpm/log"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/semver"
)

func testEnv(t *testing.T, doer *stubDoer) *environment.Environment {
	t.Helper()
	env, err := environment.Load(t.TempDir())
	require.NoError(t, err)
	env.Client = doer
	return env
}

func TestApplyInstallsWritesManifestAndExtractsPackage(t *testing.T) {
	projectRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectRoot, "Packages"), 0o755))

	payload := zipBytes(t, map[string]string{"package.json": `{"name":"A","version":"1.0.0"}`})
	env := testEnv(t, &stubDoer{body: payload})

	pkg := testPkg(t, "A", "1.0.0", "https://example.invalid/a.zip")
	m := manifest.NewVpmManifest()
	m.Dependencies["A"] = semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))
	state := project.NewState(projectRoot, m, nil, nil)

	b := changeplan.NewBuilder()
	r := semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))
	b.AddToDependencies("A", r)
	b.InstallLocked(pkg)
	plan := b.Finish(state, []string{"A"})

	require.NoError(t, Apply(context.Background(), env, state, plan, log.New(io.Discard)))

	assert.FileExists(t, filepath.Join(projectRoot, "Packages", "A", "package.json"))
	assert.FileExists(t, filepath.Join(projectRoot, "Packages", project.ManifestName))

	locked, ok := state.Manifest.Locked["A"]
	require.True(t, ok)
	assert.Equal(t, semver.MustParse("1.0.0"), locked.Version)
}

func TestApplyFailedInstallLeavesManifestUnchanged(t *testing.T) {
	projectRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectRoot, "Packages"), 0o755))

	env := testEnv(t, &stubDoer{status: 500})

	pkg := testPkg(t, "A", "1.0.0", "https://example.invalid/a.zip")
	m := manifest.NewVpmManifest()
	state := project.NewState(projectRoot, m, nil, nil)

	b := changeplan.NewBuilder()
	b.InstallLocked(pkg)
	plan := b.Finish(state, []string{"A"})

	err := Apply(context.Background(), env, state, plan, log.New(io.Discard))
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(projectRoot, "Packages", project.ManifestName))
	assert.NoFileExists(t, filepath.Join(projectRoot, "Packages", "A"))
	_, locked := state.Manifest.Locked["A"]
	assert.False(t, locked)
}

func TestApplyEmptyPlanIsNoopOnDisk(t *testing.T) {
	projectRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectRoot, "Packages"), 0o755))

	env := testEnv(t, &stubDoer{})

	m := manifest.NewVpmManifest()
	state := project.NewState(projectRoot, m, nil, nil)

	b := changeplan.NewBuilder()
	plan := b.Finish(state, nil)
	require.Empty(t, plan.PackageChanges)
	require.Empty(t, plan.RemoveLegacyFiles)
	require.Empty(t, plan.RemoveLegacyFolders)

	before, err := os.ReadDir(filepath.Join(projectRoot, "Packages"))
	require.NoError(t, err)

	require.NoError(t, Apply(context.Background(), env, state, plan, log.New(io.Discard)))

	after, err := os.ReadDir(filepath.Join(projectRoot, "Packages"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "an empty plan must not write, even a manifest, to disk")
	assert.NoFileExists(t, filepath.Join(projectRoot, "Packages", project.ManifestName))
}

func TestApplyRemovesLegacyPackageDirectory(t *testing.T) {
	projectRoot := t.TempDir()
	oldDir := filepath.Join(projectRoot, "Packages", "Old")
	require.NoError(t, os.MkdirAll(oldDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "package.json"), []byte(`{"name":"Old","version":"1.0.0"}`), 0o644))

	env := testEnv(t, &stubDoer{})

	m := manifest.NewVpmManifest()
	m.Locked["Old"] = manifest.LockedDependency{Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}}
	state := project.NewState(projectRoot, m, nil, nil)

	b := changeplan.NewBuilder()
	b.Remove("Old", changeplan.RemoveRequested)
	plan := b.Finish(state, nil)

	require.NoError(t, Apply(context.Background(), env, state, plan, log.New(io.Discard)))

	assert.NoDirExists(t, oldDir)
	_, locked := state.Manifest.Locked["Old"]
	assert.False(t, locked)
}
