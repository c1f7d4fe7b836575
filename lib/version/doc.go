// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the cairn and
// cairn-fuse binaries.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//
// When they are not injected (go install, go test) the commit and dirty
// state fall back to the VCS stamp the Go toolchain records in the
// binary's build info.
package version
