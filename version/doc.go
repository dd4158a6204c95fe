// Package version reports build information for prefetchctl.
//
// Version, commit, and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/prefetchkit/version.Version=1.2.0" ./cmd/prefetchctl
//
// Fields left unset fall back to the VCS stamp the Go toolchain embeds.
package version
