// Package config defines releaser settings shared by the commands and
// provides helpers to load, validate and save them in YAML format.
//
// Settings cover the target repository slug, release host endpoints, the
// plugin descriptor path, extra archive exclusions and the HTTP timeout.
// Command-line flags override whatever the settings file contains.
package config
