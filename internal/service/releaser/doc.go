// Package releaser orchestrates the trigger-to-artifact pipeline.
//
// A run resolves the release version from its trigger (manual dispatch
// input or pushed tag reference), reads the plugin id from the manifest,
// assembles the archive and publishes a tagged release carrying it. The
// stages are strictly ordered and every failure is fatal, so a broken
// manifest never produces an archive and a broken archive never produces
// a release.
package releaser
