package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the releaser commands.
type Config struct {
	// Repository is the "owner/name" slug of the repository releases are published to.
	Repository string `yaml:"repository"`
	// APIBaseURL is the base URL of the release host REST API.
	APIBaseURL string `yaml:"api_base_url"`
	// UploadBaseURL is the base URL assets are uploaded to.
	UploadBaseURL string `yaml:"upload_base_url"`
	// ManifestPath is the path to the plugin descriptor file.
	ManifestPath string `yaml:"manifest"`
	// Excludes lists extra filename patterns kept out of the archive,
	// on top of the built-in VCS/CI/archive exclusions.
	Excludes []string `yaml:"excludes"`
	// Timeout is the duration allowed for each HTTP call to the release host.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for releaser settings.
	DefaultConfigFilename = "releaser-settings.yaml"

	// DefaultManifestFilename is the default path of the plugin descriptor.
	DefaultManifestFilename = "plugin.yaml"

	// DefaultAPIBaseURL is the REST endpoint of the public release host.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultUploadBaseURL is the asset upload endpoint of the public release host.
	DefaultUploadBaseURL = "https://uploads.github.com"

	// DefaultTimeout is the default duration for release host calls.
	// Asset uploads move whole archives, so this is deliberately generous.
	DefaultTimeout = 2 * time.Minute

	// DefaultFilePermissions is the file permission for written settings.
	DefaultFilePermissions = 0o600

	// repositorySlugParts is the owner/name segment count of a repository slug.
	repositorySlugParts = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRepositoryRequired is returned when the repository slug is missing.
	errRepositoryRequired = errors.New("repository must be provided")
	// errRepositoryMalformed is returned when the slug is not "owner/name".
	errRepositoryMalformed = errors.New(`repository must look like "owner/name"`)
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults for the optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Repository == "" {
		return errRepositoryRequired
	}

	parts := strings.Split(cfg.Repository, "/")
	if len(parts) != repositorySlugParts || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w, got %q", errRepositoryMalformed, cfg.Repository)
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}

	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = DefaultUploadBaseURL
	}

	for _, raw := range []string{cfg.APIBaseURL, cfg.UploadBaseURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid release host URL: %w", err)
		}
	}

	if cfg.ManifestPath == "" {
		cfg.ManifestPath = DefaultManifestFilename
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}
