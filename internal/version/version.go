// Package version identifies the build. Release builds override Version
// through -ldflags.
package version

var Version = "dev"
