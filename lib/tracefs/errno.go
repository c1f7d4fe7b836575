// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"errors"
	"io/fs"
	"syscall"

	"github.com/cairn-build/cairn/lib/inode"
)

// Errno maps an error from a backing operation to the errno reported
// to the kernel. A nil error maps to 0. Errors that carry no errno
// are reported as EIO.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, inode.ErrUnsupportedKind):
		return syscall.ENOSYS
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, fs.ErrInvalid):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
