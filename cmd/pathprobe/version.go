package main

import "fmt"

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersion returns the short version string.
func GetVersion() string {
	return version
}

// GetVersionInfo returns the full version line shown by --version.
func GetVersionInfo() string {
	return fmt.Sprintf("pathprobe %s (commit %s, built %s)", version, commit, date)
}
