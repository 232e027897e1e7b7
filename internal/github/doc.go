// Package github is a minimal client for the release host REST API.
//
// The pipeline needs four calls: create a release, upload its asset, look
// up the latest release and download an asset (the latter two serve
// self-update). Anything else the API offers is out of scope, so no SDK
// is pulled in.
package github
