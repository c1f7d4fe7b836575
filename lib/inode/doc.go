// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package inode holds the attribute table behind the tracing
// filesystem.
//
// Every virtual inode id is the backing store's native inode number
// for the object's real path; the table never allocates ids of its
// own. The one exception is the mount root, which is always reported
// as [RootID] because the kernel addresses the root of every FUSE
// mount by that constant.
//
// Records are always derived from an lstat of the real path after the
// backing store has been changed. The table never computes attributes
// locally, so a refreshed record is exactly what the backing
// filesystem reports.
package inode
