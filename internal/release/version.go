package release

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// TagRefPrefix is the reference-path prefix carried by pushed tags.
	TagRefPrefix = "refs/tags/"

	// ArchiveExtension is the file extension of produced plugin archives.
	ArchiveExtension = ".zip"
)

var (
	// errVersionEmpty is returned when neither trigger carried a version.
	errVersionEmpty = errors.New("resolved version is empty")
	// errVersionMalformed is returned when the version fails the tag pattern.
	errVersionMalformed = errors.New(`version must look like "v1.2.3"`)

	// versionPattern accepts v-prefixed semantic versions with optional
	// prerelease and build-metadata suffixes.
	versionPattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
)

// ResolveVersion derives the release version from the trigger. An explicit
// version (manual dispatch) wins and is used verbatim; otherwise the pushed
// reference has its tag prefix stripped. The result is validated either way.
func ResolveVersion(explicit, ref string) (string, error) {
	version := explicit
	if version == "" {
		version = strings.TrimPrefix(ref, TagRefPrefix)
	}

	if err := ValidateVersion(version); err != nil {
		return "", err
	}

	return version, nil
}

// ValidateVersion checks that the version is non-empty and tag-shaped.
func ValidateVersion(version string) error {
	if version == "" {
		return errVersionEmpty
	}

	if !versionPattern.MatchString(version) {
		return fmt.Errorf("%w, got %q", errVersionMalformed, version)
	}

	return nil
}

// ArchiveName computes the archive filename for a plugin id and release
// version: the id, a dash, the version with its leading "v" stripped, and
// the archive extension.
func ArchiveName(id, version string) string {
	return id + "-" + strings.TrimPrefix(version, "v") + ArchiveExtension
}

// Newer reports whether candidate is a strictly newer release than current.
// Malformed inputs compare as not newer, so callers never "upgrade" onto
// something the tag pattern would have rejected.
func Newer(current, candidate string) bool {
	currentParts, okCurrent := versionParts(current)
	candidateParts, okCandidate := versionParts(candidate)

	if !okCurrent || !okCandidate {
		return false
	}

	for i := range currentParts {
		if candidateParts[i] != currentParts[i] {
			return candidateParts[i] > currentParts[i]
		}
	}

	return false
}

// versionParts extracts the numeric major/minor/patch triple.
func versionParts(version string) ([3]int, bool) {
	var parts [3]int

	match := versionPattern.FindStringSubmatch(version)
	if match == nil {
		return parts, false
	}

	for i := range parts {
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return parts, false
		}

		parts[i] = n
	}

	return parts, true
}
