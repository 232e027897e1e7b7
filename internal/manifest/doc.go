// Package manifest reads the plugin descriptor (plugin.yaml).
//
// The packaging contract needs exactly one field from it: the plugin id,
// which becomes the archive filename prefix. A descriptor without an id
// fails the run before any archive work happens.
package manifest
