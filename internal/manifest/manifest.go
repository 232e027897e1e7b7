package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Manifest is the plugin descriptor read from plugin.yaml.
// Only ID is required by the packaging contract; the remaining fields
// are carried so callers can log what they are releasing.
type Manifest struct {
	// ID is the plugin identifier used in the archive filename.
	ID string `yaml:"id"`
	// Name is the human-readable plugin name.
	Name string `yaml:"name"`
	// Version is the version declared by the plugin author, if any.
	// The release version comes from the trigger, not from here.
	Version string `yaml:"version"`
	// Author is the plugin author or vendor.
	Author string `yaml:"author"`
	// Description is the short plugin description.
	Description string `yaml:"description"`
}

var (
	// errIDMissing is returned when the manifest has no id field.
	errIDMissing = errors.New("manifest is missing required field \"id\"")
	// errIDMalformed is returned when the id is not a usable slug.
	errIDMalformed = errors.New("manifest id must contain only letters, digits, '-', '_' or '.'")

	// idPattern restricts ids to characters safe in a filename.
	idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// Load reads and validates the plugin descriptor at the provided path.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks the fields the packaging contract depends on.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return errIDMissing
	}

	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w, got %q", errIDMalformed, m.ID)
	}

	return nil
}
