// Package version exposes build metadata injected via ldflags and a
// reusable cobra `version` subcommand. The self-update service compares
// the embedded version against the latest published release.
package version
