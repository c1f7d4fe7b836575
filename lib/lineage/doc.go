// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package lineage recovers one build's events from a shared trace log.
//
// The log holds every operation seen on the mount, from every run and
// every process. Given the pid of the build's root process and the
// time the build started, [Filter] keeps exactly the entries produced
// by the root and by processes that the log itself shows descending
// from it: an entry is kept when its pid is the root, or when its
// logged parent has already been shown to belong to the build. The
// logged parent is whatever the tracer resolved when the event
// happened, not the live process tree.
//
// Entries older than the start time are discarded before lineage is
// computed, so a pid reused from an earlier run cannot pull that
// run's events in.
//
// A pid that appears only in the ppid column never joins the lineage.
// If an intermediate process performed no traced operation of its own,
// its children's entries are therefore not recovered.
package lineage
