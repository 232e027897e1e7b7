package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/difytools/plugin-releaser/internal/config"
	"github.com/difytools/plugin-releaser/internal/github"
	"github.com/difytools/plugin-releaser/internal/logger"
	"github.com/difytools/plugin-releaser/internal/service/releaser"
	"github.com/difytools/plugin-releaser/internal/version"
)

// defaultReleaseVersion is used when a manual run supplies no version.
const defaultReleaseVersion = "v1.0.0"

var (
	// configPath to the settings YAML file.
	configPath string

	// releaseVersion is the manual-dispatch version input.
	releaseVersion string

	// releaseRef is the pushed reference, e.g. refs/tags/v1.2.3.
	releaseRef string

	// manifestPath overrides the plugin descriptor path.
	manifestPath string

	// skipPublish stops after building and fingerprinting the archive.
	skipPublish bool

	// logLevel sets the logging verbosity.
	logLevel string

	// rootCmd represents the base command packaging and publishing a plugin release.
	rootCmd = &cobra.Command{
		Use:   "plugin-releaser",
		Short: "Package a plugin directory and publish it as a release",
		Long: "Resolve a release version from its trigger (an explicit --version or a pushed " +
			"tag --ref), read the plugin id from the manifest, pack the working tree into a zip " +
			"archive and publish a tagged release carrying it as the sole asset.",
		Args: cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// A bare manual run packages the default version.
			if releaseVersion == "" && releaseRef == "" {
				releaseVersion = defaultReleaseVersion
			}

			options := &releaser.Options{
				ConfigPath:   configPath,
				Version:      releaseVersion,
				Ref:          releaseRef,
				ManifestPath: manifestPath,
				Token:        os.Getenv(github.TokenEnvVar),
				SkipPublish:  skipPublish,
			}

			return releaser.Run(ctx, options)
		},
	}
)

// Execute runs the plugin-releaser CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	attachUpgradeCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.Flags()
	flags.StringVarP(&releaseVersion, "version", "v", "",
		"release version for a manual run, used verbatim (defaults to "+defaultReleaseVersion+" when --ref is absent)")
	flags.StringVarP(&releaseRef, "ref", "r", "",
		"pushed reference for a tag-triggered run, e.g. refs/tags/v1.2.3")
	flags.StringVarP(&manifestPath, "manifest", "m", "",
		"path to the plugin descriptor (defaults to "+config.DefaultManifestFilename+")")
	flags.BoolVar(&skipPublish, "skip-publish", false,
		"build and fingerprint the archive without creating a release")
	rootCmd.MarkFlagsMutuallyExclusive("version", "ref")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename,
		"path to configuration file")
	persistent.StringVar(&logLevel, "log-level", "info",
		"logging level: debug, info, warn, error or fatal")
}
