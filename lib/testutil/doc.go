// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for cairn packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. Mount tests use them to
// wait for the serve loop to report readiness or exit.
//
// [Tree] materializes a backing directory from a path-to-content map,
// the shape most interception and manifest tests start from.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
