// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package launch starts a traced build command and recovers the
// process id that roots its process tree.
//
// The command runs inside the traced mount, either through docker exec
// in a build container ([DockerExec]) or directly under a local shell
// ([Local]). Either way the last line the command prints to stdout is
// its root pid in decimal. Every earlier line is echoed to the caller.
// A missing or non-numeric last line fails the launch with
// [ErrLaunchFailed].
package launch
