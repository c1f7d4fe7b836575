// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest summarizes a filtered trace as the dependencies
// of one build step: the files it consumed, the files it produced,
// what it deleted, and what it moved.
//
// A file the step wrote and later read back is an output, not an
// input. Outputs that are deleted again before the step ends are
// dropped. Digests are BLAKE3-256 over file contents at the time the
// manifest is built.
package manifest
