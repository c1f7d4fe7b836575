// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracefs implements the tracing pass-through filesystem.
//
// A [FileSystem] serves every request against a real backing directory
// and reports the operations that a build's dependency analysis needs
// to a [Tracer]: opens (read or write), creations, deletions, renames,
// attribute changes, and filesystem queries. Reads and writes through
// an already open file are not traced; the open that preceded them
// was.
//
// FileSystem is independent of the kernel transport. Each operation
// takes the calling process's identity and virtual inode ids, and
// returns attribute records or a syscall.Errno. [Mount] connects a
// FileSystem to the kernel through go-fuse's raw API. Entry and
// attribute timeouts are zero, so the kernel consults the daemon on
// every path resolution and no access escapes the trace.
//
// All operations that change the backing tree hold an exclusive lock
// across the syscall, the metadata refresh, and the table update.
// Read-only operations share the lock. Trace records are emitted only
// after the backing operation has succeeded.
package tracefs
