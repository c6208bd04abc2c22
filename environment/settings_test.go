package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileIsEmptyAndDirty(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Empty(t, s.UserRepos)
	assert.True(t, s.dirty)
}

func TestSettingsSaveElidesNoOpWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadSettings(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(dir))

	path := filepath.Join(dir, settingsFileName)
	_, err = os.Stat(path)
	require.NoError(t, err, "first save with a fresh (dirty) settings must create the file")

	info1, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadSettings(dir)
	require.NoError(t, err)
	require.NoError(t, loaded.Save(dir))

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime(), "re-saving unmutated settings must not rewrite the file")
}

func TestSettingsRoundTripPreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, settingsFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"userRepos": [{"localPath": "/x/a.json", "url": "https://example.com/a.json"}],
		"userPackageFolders": ["/somewhere"],
		"someFutureField": {"nested": true}
	}`), 0o644))

	s, err := LoadSettings(dir)
	require.NoError(t, err)
	require.Len(t, s.UserRepos, 1)
	assert.Equal(t, "https://example.com/a.json", s.UserRepos[0].URL)
	assert.Equal(t, []string{"/somewhere"}, s.UserPackageFolders)

	s.dirty = true
	require.NoError(t, s.Save(dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "someFutureField")
}

func TestFindUserRepoMatchesURLOrID(t *testing.T) {
	s := &Settings{UserRepos: []UserRepoSetting{
		{URL: "https://example.com/a.json", ID: "com.example.a"},
	}}
	_, ok := s.FindUserRepo("https://example.com/a.json")
	assert.True(t, ok)
	_, ok = s.FindUserRepo("com.example.a")
	assert.True(t, ok)
	_, ok = s.FindUserRepo("nope")
	assert.False(t, ok)
}
