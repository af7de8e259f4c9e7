// Package version reports cachekit build information.
//
// Version, commit, branch and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/cachekit/version.Version=1.0.0" ./cmd/cachekit
//
// Anything left unset is filled from the Go build info where available.
package version
