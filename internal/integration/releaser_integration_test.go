package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/difytools/plugin-releaser/internal/config"
	"github.com/difytools/plugin-releaser/internal/service/releaser"
)

// releaseHost is an in-memory stand-in for the release hosting API.
type releaseHost struct {
	mu        sync.Mutex
	createdAt map[string]struct{} // tags with a release
	tagName   string
	assetName string
	assetBody []byte
}

// handler implements the two endpoints the pipeline touches.
func (h *releaseHost) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /repos/difytools/sample-plugin/releases", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			TagName string `json:"tag_name"`
			Name    string `json:"name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		h.mu.Lock()
		defer h.mu.Unlock()

		if _, exists := h.createdAt[payload.TagName]; exists {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message": "Validation Failed: tag_name already exists"}`)

			return
		}

		h.createdAt[payload.TagName] = struct{}{}
		h.tagName = payload.TagName

		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": 1, "tag_name": %q, "name": %q, "html_url": "https://example.com/r/1"}`,
			payload.TagName, payload.Name)
	})

	mux.HandleFunc("POST /repos/difytools/sample-plugin/releases/1/assets", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		h.mu.Lock()
		defer h.mu.Unlock()

		h.assetName = r.URL.Query().Get("name")
		h.assetBody = body

		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": 11, "name": %q, "size": %d}`, h.assetName, len(body))
	})

	return mux
}

// setupPluginTree lays out a plugin working tree with the usual clutter that
// must stay out of the bundle.
func setupPluginTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"plugin.yaml":                   "id: sample\nname: Sample Plugin\nauthor: difytools\n",
		"main.py":                       "print('hi')\n",
		"endpoints/slack.py":            "# endpoint\n",
		".git/HEAD":                     "ref: refs/heads/main\n",
		".github/workflows/release.yml": "on: push\n",
		"sample-0.9.0.zip":              "previous archive",
	}
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	return root
}

// writeSettings persists releaser settings pointing at the fake host.
func writeSettings(t *testing.T, root, hostURL string) string {
	t.Helper()

	path := filepath.Join(root, config.DefaultConfigFilename)
	cfg := &config.Config{
		Repository:    "difytools/sample-plugin",
		APIBaseURL:    hostURL,
		UploadBaseURL: hostURL,
		Timeout:       5 * time.Second,
	}
	require.NoError(t, config.Save(path, cfg))

	return path
}

// TestReleaser_PublishesTaggedReleaseWithArchive is the main scenario:
// dispatch with version v1.0.0 and manifest id sample yields an archive
// sample-1.0.0.zip attached to a release tagged v1.0.0.
func TestReleaser_PublishesTaggedReleaseWithArchive(t *testing.T) {
	t.Parallel()

	host := &releaseHost{createdAt: make(map[string]struct{})}
	server := httptest.NewServer(host.handler(t))
	defer server.Close()

	root := setupPluginTree(t)
	configPath := writeSettings(t, root, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := releaser.Run(ctx, &releaser.Options{
		ConfigPath: configPath,
		Root:       root,
		Version:    "v1.0.0",
		Token:      "test-token",
	})
	require.NoError(t, err)

	require.Equal(t, "v1.0.0", host.tagName)
	require.Equal(t, "sample-1.0.0.zip", host.assetName)

	// The uploaded bytes are a valid zip of the plugin tree, minus
	// version-control internals, CI definitions and the stale archive.
	reader, err := zip.NewReader(bytes.NewReader(host.assetBody), int64(len(host.assetBody)))
	require.NoError(t, err)

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}

	require.ElementsMatch(t, []string{
		"plugin.yaml",
		"main.py",
		"endpoints/slack.py",
		config.DefaultConfigFilename,
	}, names)

	// The archive is also left in the tree as the job artifact.
	_, err = os.Stat(filepath.Join(root, "sample-1.0.0.zip"))
	require.NoError(t, err)
}

// TestReleaser_TagTriggerResolvesFromRef runs the tag-push path.
func TestReleaser_TagTriggerResolvesFromRef(t *testing.T) {
	t.Parallel()

	host := &releaseHost{createdAt: make(map[string]struct{})}
	server := httptest.NewServer(host.handler(t))
	defer server.Close()

	root := setupPluginTree(t)
	configPath := writeSettings(t, root, server.URL)

	err := releaser.Run(context.Background(), &releaser.Options{
		ConfigPath: configPath,
		Root:       root,
		Ref:        "refs/tags/v1.0.0",
		Token:      "test-token",
	})
	require.NoError(t, err)
	require.Equal(t, "v1.0.0", host.tagName)
}

// TestReleaser_DuplicateTagSurfacesHostError repeats a run with the same tag
// and expects the host's rejection verbatim; the archive stays on disk.
func TestReleaser_DuplicateTagSurfacesHostError(t *testing.T) {
	t.Parallel()

	host := &releaseHost{createdAt: make(map[string]struct{})}
	server := httptest.NewServer(host.handler(t))
	defer server.Close()

	root := setupPluginTree(t)
	configPath := writeSettings(t, root, server.URL)

	options := &releaser.Options{
		ConfigPath: configPath,
		Root:       root,
		Version:    "v1.0.0",
		Token:      "test-token",
	}

	require.NoError(t, releaser.Run(context.Background(), options))

	err := releaser.Run(context.Background(), options)
	require.Error(t, err)
	require.ErrorContains(t, err, "already exists")

	_, err = os.Stat(filepath.Join(root, "sample-1.0.0.zip"))
	require.NoError(t, err)
}

// TestReleaser_MissingManifestPublishesNothing ensures a tree without a
// descriptor produces neither an archive nor a release.
func TestReleaser_MissingManifestPublishesNothing(t *testing.T) {
	t.Parallel()

	host := &releaseHost{createdAt: make(map[string]struct{})}
	server := httptest.NewServer(host.handler(t))
	defer server.Close()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("print('hi')\n"), 0o644))
	configPath := writeSettings(t, root, server.URL)

	err := releaser.Run(context.Background(), &releaser.Options{
		ConfigPath: configPath,
		Root:       root,
		Version:    "v1.0.0",
		Token:      "test-token",
	})
	require.Error(t, err)

	require.Empty(t, host.tagName)

	matches, err := filepath.Glob(filepath.Join(root, "*.zip"))
	require.NoError(t, err)
	require.Empty(t, matches)
}
