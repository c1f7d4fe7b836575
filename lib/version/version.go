// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time:
//
//	go build -ldflags "-X github.com/cairn-build/cairn/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	commit, dirty := vcs()
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA, or "unknown".
func Commit() string {
	commit, _ := vcs()
	return commit
}

func vcs() (commit string, dirty bool) {
	commit, dirty = GitCommit, GitDirty == "true"
	if commit != "unknown" {
		return commit, dirty
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, dirty
	}
	return fromBuildSettings(info.Settings, commit, dirty)
}

func fromBuildSettings(settings []debug.BuildSetting, commit string, dirty bool) (string, bool) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return commit, dirty
}

// Print writes "<name> <Full()>" to stdout for --version flags.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Full())
}
