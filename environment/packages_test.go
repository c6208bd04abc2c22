package environment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/log"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/semver"
)

func TestLoadPackageInfosBuildsCollectionWithoutNetwork(t *testing.T) {
	env, err := Load(t.TempDir())
	require.NoError(t, err)
	env.Client = alwaysNotModified{}

	col := env.LoadPackageInfos(context.Background(), log.New(discardWriter{}), true, nil)
	require.NotNil(t, col)

	_, ok := env.FindPackage(col, "com.vrchat.nonexistent", collection.Latest(false, nil))
	assert.False(t, ok)
}

func TestFindPackageResolvesUnlockedPackage(t *testing.T) {
	env, err := Load(t.TempDir())
	require.NoError(t, err)

	doc := `{"name":"com.vrchat.a","version":"1.0.0"}`
	m, err := manifest.ParsePackageManifest([]byte(doc))
	require.NoError(t, err)

	col := env.LoadPackageInfos(context.Background(), nil, false, []collection.UnlockedPackage{
		{Name: "com.vrchat.a", Manifest: m},
	})

	info, ok := env.FindPackage(col, "com.vrchat.a", collection.Specific(semver.MustParse("1.0.0")))
	require.True(t, ok)
	assert.True(t, info.Source.Local)
}
