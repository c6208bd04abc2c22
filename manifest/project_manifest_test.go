package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/semver"
)

func TestVpmManifestRoundTrip(t *testing.T) {
	m := NewVpmManifest()
	dr, err := semver.ParseDependencyRange("^1.0.0")
	require.NoError(t, err)
	m.Dependencies["com.vrchat.a"] = dr
	m.Locked["com.vrchat.a"] = manifestLockedEntry(t, "1.2.0", map[string]string{"com.vrchat.base": "^1.0.0"})

	encoded, err := m.Encode()
	require.NoError(t, err)

	decoded, err := ParseVpmManifest(encoded)
	require.NoError(t, err)

	assert.Equal(t, m.Dependencies["com.vrchat.a"].String(), decoded.Dependencies["com.vrchat.a"].String())
	assert.Equal(t, semver.MustParse("1.2.0"), decoded.Locked["com.vrchat.a"].Version)
}

func manifestLockedEntry(t *testing.T, version string, deps map[string]string) LockedDependency {
	t.Helper()
	d := make(map[string]semver.Range, len(deps))
	for k, v := range deps {
		d[k] = semver.MustParseRange(v)
	}
	return LockedDependency{Version: semver.MustParse(version), Dependencies: d}
}

func TestVpmManifestEmpty(t *testing.T) {
	m := NewVpmManifest()
	assert.Empty(t, m.Dependencies)
	assert.Empty(t, m.Locked)
}
