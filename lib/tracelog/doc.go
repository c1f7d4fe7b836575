// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracelog writes and reads the cairn trace log.
//
// The tracing filesystem appends one line per observed operation:
//
//	[INFO] -> <unix_seconds>: <pid>|<ppid>|<op>|<path>[|<path>]
//
// The log file is the only contract between the filesystem daemon and
// the filter that runs after a build. It is append-only and may hold
// events from many runs and from unrelated processes; the filter
// recovers one run's events using the pid, ppid, and timestamp
// columns.
//
// Lines that do not match the grammar exactly are skipped by [Parse].
// This includes records whose parent pid could not be resolved at
// emission time: they are written with ppid -1, which the grammar
// rejects.
//
// Logs that are reused across many builds can be rotated with
// [Archive]; [Open] reads plain, zstd, and lz4 logs alike.
package tracelog
