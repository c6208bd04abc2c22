package changeplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/semver"
)

func TestBuildRemoveRequestRejectsUnknownName(t *testing.T) {
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{},
		Locked:       map[string]manifest.LockedDependency{},
	}, nil, nil)

	_, err := BuildRemoveRequest(state, []string{"A"})
	require.Error(t, err)
	var target *NotInstalledError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{"A"}, target.Names)
}

func TestBuildRemoveRequestRejectsDependedUponPackage(t *testing.T) {
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{},
		Locked: map[string]manifest.LockedDependency{
			"A": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}},
			"B": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{"A": semver.MustParseRange(">=1.0.0")}},
		},
	}, nil, nil)

	_, err := BuildRemoveRequest(state, []string{"A"})
	require.Error(t, err)
	var target *RemoveConflictsError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{"B"}, target.Names)
}

func TestBuildRemoveRequestSweepsOrphanedTransitive(t *testing.T) {
	state := project.NewState("", &manifest.VpmManifest{
		Dependencies: map[string]semver.DependencyRange{"A": semver.DependencyRangeFromVersion(semver.MustParse("1.0.0"))},
		Locked: map[string]manifest.LockedDependency{
			"A": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{"L": semver.MustParseRange(">=1.0.0")}},
			"L": {Version: semver.MustParse("1.0.0"), Dependencies: map[string]semver.Range{}},
		},
	}, nil, nil)

	changes, err := BuildRemoveRequest(state, []string{"A"})
	require.NoError(t, err)
	removals := changes.Removals()
	assert.Equal(t, RemoveRequested, removals["A"])
	assert.Equal(t, RemoveUnused, removals["L"])
}
