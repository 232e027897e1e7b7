// Package archive assembles the plugin bundle: a zip of the working tree
// with version-control internals, CI definitions and previously built
// archives kept out, plus a checksum helper for fingerprinting the result.
package archive
