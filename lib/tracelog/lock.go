// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// LockedWriter appends to a trace log under a shared flock, one lock
// per Write. Archive with Truncate holds the exclusive lock across its
// copy and truncate, so a record is either in the archive or in the
// emptied log.
type LockedWriter struct {
	file *os.File
}

// NewLockedWriter wraps file, which should be opened with O_APPEND.
func NewLockedWriter(file *os.File) *LockedWriter {
	return &LockedWriter{file: file}
}

func (w *LockedWriter) Write(data []byte) (int, error) {
	if err := flock(w.file, unix.LOCK_SH); err != nil {
		return 0, fmt.Errorf("locking trace log: %w", err)
	}
	defer flock(w.file, unix.LOCK_UN)
	return w.file.Write(data)
}

func flock(file *os.File, how int) error {
	for {
		err := unix.Flock(int(file.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
