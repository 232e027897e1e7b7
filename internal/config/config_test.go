package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, slug format and defaulting.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing repository.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad slug.
	cfg = &Config{
		Repository: "just-a-name",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad endpoint.
	cfg = &Config{
		Repository: "difytools/sample-plugin",
		APIBaseURL: "not a url",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay; defaults filled in.
	cfg = &Config{
		Repository: "difytools/sample-plugin",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	require.Equal(t, DefaultUploadBaseURL, cfg.UploadBaseURL)
	require.Equal(t, DefaultManifestFilename, cfg.ManifestPath)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Repository:   "difytools/sample-plugin",
		ManifestPath: "plugin.yaml",
		Excludes:     []string{"*.log"},
		Timeout:      30 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Repository, loaded.Repository)
	require.Equal(t, cfg.Excludes, loaded.Excludes)
	require.Equal(t, cfg.Timeout, loaded.Timeout)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadMissingFile ensures a missing settings file surfaces a read error.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
