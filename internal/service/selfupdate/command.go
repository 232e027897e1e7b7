package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/difytools/plugin-releaser/internal/github"
	"github.com/difytools/plugin-releaser/internal/logger"
	"github.com/difytools/plugin-releaser/internal/release"
	"github.com/difytools/plugin-releaser/internal/version"
)

// ToolRepository is the repository the releaser itself is published from.
const ToolRepository = "difytools/plugin-releaser"

// defaultTimeout bounds the release lookup and the binary download.
const defaultTimeout = 5 * time.Minute

// errNoPlatformAsset is returned when the latest release carries no binary
// for the current platform.
var errNoPlatformAsset = errors.New("no release asset for this platform")

// Options contains inputs for the self-update entry point.
type Options struct {
	// Repository overrides the repository the new binary is fetched from.
	Repository string
	// Token authenticates release host calls. Optional for public repositories.
	Token string
	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// Run replaces the running binary with the latest published release when one
// is newer than the embedded version.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "plugin-releaser-upgrade")

	repository := opts.Repository
	if repository == "" {
		repository = ToolRepository
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := github.NewClient(repository, opts.Token, github.WithTimeout(timeout))

	latest, err := client.LatestRelease(ctx)
	if err != nil {
		return err
	}

	current := version.Short()
	if !release.Newer(current, latest.TagName) {
		logger.InfoKV(ctx, "Already up to date", "version", current, "latest", latest.TagName)
		return nil
	}

	logger.InfoKV(ctx, "Upgrading", "from", current, "to", latest.TagName)

	asset, err := platformAsset(latest)
	if err != nil {
		return err
	}

	if err = apply(ctx, client, asset); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Upgrade complete, restart to use the new version", "version", latest.TagName)

	return nil
}

// platformAsset picks the asset built for the current OS and architecture.
func platformAsset(rel *github.Release) (*github.Asset, error) {
	want := AssetName(runtime.GOOS, runtime.GOARCH)

	for i := range rel.Assets {
		if rel.Assets[i].Name == want {
			return &rel.Assets[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", errNoPlatformAsset, want)
}

// AssetName is the naming convention of published releaser binaries.
func AssetName(goos, goarch string) string {
	name := "plugin-releaser-" + goos + "-" + goarch
	if goos == "windows" {
		name += ".exe"
	}

	return name
}

// apply streams the downloaded binary over the running executable.
func apply(ctx context.Context, client *github.Client, asset *github.Asset) (err error) {
	body, err := client.DownloadAsset(ctx, asset)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close download: %w", closeErr)
		}
	}()

	// Empty TargetPath means the currently running executable.
	//nolint:exhaustruct // Checksum validation is skipped: the asset comes over TLS from the release host.
	if err = goupdate.Apply(body, goupdate.Options{}); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	return nil
}
