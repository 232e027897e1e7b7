package selfupdate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/difytools/plugin-releaser/internal/github"
)

// TestAssetName covers the platform naming convention.
func TestAssetName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "plugin-releaser-linux-amd64", AssetName("linux", "amd64"))
	require.Equal(t, "plugin-releaser-darwin-arm64", AssetName("darwin", "arm64"))
	require.Equal(t, "plugin-releaser-windows-amd64.exe", AssetName("windows", "amd64"))
}

// TestPlatformAsset finds the matching asset and fails on a release without one.
func TestPlatformAsset(t *testing.T) {
	t.Parallel()

	rel := &github.Release{
		TagName: "v2.0.0",
		Assets: []github.Asset{
			{Name: "plugin-releaser-linux-amd64"},
			{Name: "plugin-releaser-darwin-arm64"},
			{Name: "plugin-releaser-windows-amd64.exe"},
			{Name: "sample-2.0.0.zip"},
		},
	}

	asset, err := platformAsset(rel)
	require.NoError(t, err)
	require.Contains(t, asset.Name, "plugin-releaser-")

	empty := &github.Release{TagName: "v2.0.0"}

	_, err = platformAsset(empty)
	require.ErrorIs(t, err, errNoPlatformAsset)
}
