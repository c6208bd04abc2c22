package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/semver"
)

func TestParsePackageManifestBasic(t *testing.T) {
	doc := `{
		"name": "com.vrchat.example",
		"version": "1.2.3",
		"displayName": "Example",
		"vpmDependencies": {"com.vrchat.base": "^1.0.0"},
		"unity": "2019.4",
		"legacyFolders": {"Assets/Old": "11111111-1111-1111-1111-111111111111"},
		"vrc-get": {"aliases": ["com.vrchat.example-old"]}
	}`

	m, err := ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "com.vrchat.example", m.Name)
	assert.Equal(t, semver.MustParse("1.2.3"), m.Version)
	assert.Equal(t, "Example", m.DisplayName)
	assert.True(t, m.VpmDependencies["com.vrchat.base"].Matches(semver.MustParse("1.5.0")))
	require.NotNil(t, m.Unity)
	assert.Equal(t, uint16(2019), m.Unity.Major)
	assert.Equal(t, uint8(4), m.Unity.Minor)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", m.LegacyFolders["Assets/Old"])
	assert.Equal(t, []string{"com.vrchat.example-old"}, m.Aliases)
	assert.False(t, m.IsYanked())
}

func TestParsePackageManifestMissingNameFails(t *testing.T) {
	_, err := ParsePackageManifest([]byte(`{"version": "1.0.0"}`))
	assert.Error(t, err)
}

func TestParsePackageManifestLenientOptionalField(t *testing.T) {
	// displayName is an object instead of a string: should degrade to "",
	// not fail the whole document.
	doc := `{"name": "p", "version": "1.0.0", "displayName": {"nope": true}}`
	m, err := ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "p", m.Name)
	assert.Equal(t, "", m.DisplayName)
}

func TestYankTriValues(t *testing.T) {
	cases := []struct {
		doc    string
		yanked bool
		reason string
	}{
		{`{"name":"p","version":"1.0.0","vrc-get":{"yanked":false}}`, false, ""},
		{`{"name":"p","version":"1.0.0","vrc-get":{"yanked":true}}`, true, ""},
		{`{"name":"p","version":"1.0.0","vrc-get":{"yanked":"superseded"}}`, true, "superseded"},
	}
	for _, c := range cases {
		m, err := ParsePackageManifest([]byte(c.doc))
		require.NoError(t, err)
		assert.Equal(t, c.yanked, m.IsYanked())
		assert.Equal(t, c.reason, m.Yank.Reason)
	}
}

func TestDedupDecodeLastWriteWins(t *testing.T) {
	doc := `{"name": "first", "name": "second", "version": "1.0.0"}`
	m, err := ParsePackageManifest([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "second", m.Name)
}

func TestParseRepositoryIndexDropsBadPackageVersion(t *testing.T) {
	doc := `{
		"name": "Test Repo",
		"packages": {
			"com.vrchat.a": {
				"1.0.0": {"name": "com.vrchat.a", "version": "1.0.0"},
				"bogus": {"name": "com.vrchat.a"}
			}
		}
	}`
	idx, err := ParseRepositoryIndex([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Test Repo", idx.Name)
	versions := idx.Packages["com.vrchat.a"]
	require.Len(t, versions, 1)
	require.Contains(t, versions, "1.0.0")
}
