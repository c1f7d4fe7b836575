// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package filter implements "cairn filter", the batch causal filter
// over an existing trace log, and the [Pipeline] that "cairn run"
// drives after its build command exits.
package filter
