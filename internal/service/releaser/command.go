package releaser

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/difytools/plugin-releaser/internal/archive"
	"github.com/difytools/plugin-releaser/internal/config"
	"github.com/difytools/plugin-releaser/internal/github"
	"github.com/difytools/plugin-releaser/internal/logger"
	"github.com/difytools/plugin-releaser/internal/manifest"
	"github.com/difytools/plugin-releaser/internal/release"
)

// Options contains inputs for the releaser entry point.
type Options struct {
	// ConfigPath is an optional path to the settings file (defaults to releaser-settings.yaml).
	ConfigPath string
	// Root is the plugin working tree to package. Empty means the current directory.
	Root string
	// Version is the manual-dispatch version input. Used verbatim when set.
	Version string
	// Ref is the pushed reference (e.g. refs/tags/v1.2.3) used when Version is empty.
	Ref string
	// ManifestPath overrides the plugin descriptor path from the settings file.
	ManifestPath string
	// Token authenticates against the release host. Required unless SkipPublish is set.
	Token string
	// SkipPublish stops the pipeline after the archive is built and fingerprinted.
	SkipPublish bool
}

// releaser holds the state of a single packaging run.
// It is unexported—callers should use Run, which encapsulates setup and validation.
type releaser struct {
	// cfg holds repository and release host settings.
	cfg *config.Config
	// opts are the trigger inputs of this run.
	opts *Options
	// client talks to the release host. Nil when publishing is skipped.
	client *github.Client
	// version is the resolved release version (tag and display name).
	version string
	// desc is the plugin descriptor read from the manifest.
	desc *manifest.Manifest
	// archivePath is where the produced bundle was written.
	archivePath string
}

// Run executes the packaging workflow: resolve the version from the trigger,
// read the plugin descriptor, assemble the archive and publish the release.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "plugin-releaser")

	rel, err := newReleaser(opts)
	if err != nil {
		return fmt.Errorf("initialize releaser: %w", err)
	}

	unlock, err := acquireLock(ctx, rel.root())
	if err != nil {
		return err
	}
	defer unlock()

	if err = rel.run(ctx); err != nil {
		return fmt.Errorf("releaser failed: %w", err)
	}

	logger.Info(ctx, "Releaser completed successfully")

	return nil
}

// newReleaser loads settings and prepares the release host client.
func newReleaser(opts *Options) (*releaser, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.ManifestPath != "" {
		cfg.ManifestPath = opts.ManifestPath
	}

	rel := &releaser{
		cfg:  cfg,
		opts: opts,
	}

	if !opts.SkipPublish {
		rel.client = github.NewClient(cfg.Repository, opts.Token,
			github.WithBaseURLs(cfg.APIBaseURL, cfg.UploadBaseURL),
			github.WithTimeout(cfg.Timeout))
	}

	return rel, nil
}

// run walks the pipeline stages in order. Each stage is fatal on error, so
// nothing is published unless the archive was fully built first.
func (r *releaser) run(ctx context.Context) error {
	if err := r.resolveVersion(ctx); err != nil {
		return err
	}

	if err := r.readManifest(ctx); err != nil {
		return err
	}

	if err := r.buildArchive(ctx); err != nil {
		return err
	}

	if r.opts.SkipPublish {
		logger.InfoKV(ctx, "Publishing skipped, archive left in working tree", "archive", r.archivePath)
		return nil
	}

	return r.publish(ctx)
}

// resolveVersion applies the two-way trigger branch: explicit input verbatim,
// otherwise the pushed tag reference with its prefix stripped.
func (r *releaser) resolveVersion(ctx context.Context) error {
	version, err := release.ResolveVersion(r.opts.Version, r.opts.Ref)
	if err != nil {
		return err
	}

	r.version = version

	logger.InfoKV(ctx, "Resolved release version", "version", version)

	return nil
}

// readManifest loads the plugin descriptor. A missing or invalid descriptor
// fails the run before any archive I/O happens.
func (r *releaser) readManifest(ctx context.Context) error {
	path := r.cfg.ManifestPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.root(), path)
	}

	desc, err := manifest.Load(path)
	if err != nil {
		return err
	}

	r.desc = desc

	logger.InfoKV(ctx, "Read plugin manifest", "id", desc.ID, "name", desc.Name)

	return nil
}

// buildArchive assembles the bundle and logs its checksum.
func (r *releaser) buildArchive(ctx context.Context) error {
	name := release.ArchiveName(r.desc.ID, r.version)
	r.archivePath = filepath.Join(r.root(), name)

	excludes := append([]string{lockFilename}, r.cfg.Excludes...)

	logger.InfoKV(ctx, "Building archive", "archive", name)

	if err := archive.Build(ctx, r.root(), r.archivePath, excludes); err != nil {
		return err
	}

	checksum, err := archive.Checksum(r.archivePath)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Archive ready",
		"archive", name,
		"sha256", hex.EncodeToString(checksum))

	return nil
}

// publish creates the release and attaches the archive as its sole asset.
func (r *releaser) publish(ctx context.Context) error {
	created, err := r.client.CreateRelease(ctx, r.version, r.version)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Created release", "tag", created.TagName, "url", created.HTMLURL)

	asset, err := r.client.UploadAsset(ctx, created, r.archivePath)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Uploaded release asset", "asset", asset.Name, "size", asset.Size)

	return nil
}

// root returns the working tree being packaged.
func (r *releaser) root() string {
	if r.opts.Root == "" {
		return "."
	}

	return r.opts.Root
}
