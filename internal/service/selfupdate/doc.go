// Package selfupdate keeps the releaser binary current: it compares the
// embedded build version against the latest published release and, when
// behind, downloads the platform binary and applies it in place.
package selfupdate
