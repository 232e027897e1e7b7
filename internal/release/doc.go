// Package release contains the pure naming rules of the pipeline: how a
// release version is derived from its trigger (an explicit dispatch input
// or a pushed tag reference), what a valid version looks like, and how the
// archive filename is built from the plugin id and the version.
package release
