// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the cairn tools.
//
// Configuration comes from two places. An optional file named by the
// CAIRN_CONFIG environment variable (via [Load]) or passed explicitly
// (via [LoadFile]) sets the build container, the chroot and sandbox
// paths, and the launcher. The CAIRN_MNT_DIR environment variable
// names the traced mount directory on the host and takes precedence
// over the file's mount_dir. There is no file discovery.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas; anything else is YAML. Both use the same keys.
//
// After loading, ${HOME} and ${VAR:-default} patterns are expanded in
// path fields. A missing mount directory is reported as
// [ErrEnvironment] only by the operations that need it, so commands
// that work from explicit paths run without one.
package config
