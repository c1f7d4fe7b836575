// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package run implements "cairn run": launch one build command over
// the traced mount, then filter the trace log down to that command's
// process tree.
package run
