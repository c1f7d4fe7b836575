// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers shared by the
// cairn and cairn-fuse binaries: fatal error reporting before the
// structured logger exists, and the signal-cancelled root context that
// bounds a mount's lifetime.
package process
