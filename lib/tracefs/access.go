// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"syscall"

	"github.com/cairn-build/cairn/lib/inode"
	"golang.org/x/sys/unix"
)

// CheckAccess reports whether a requester with uid and gid may access
// a file with fileUID, fileGID, and permission bits perm for every
// bit in mask (a combination of R_OK, W_OK, and X_OK).
//
// F_OK always succeeds. Root is granted everything except execute,
// which still requires at least one execute bit. Other requesters are
// checked against exactly one of the owner, group, or other triplets.
func CheckAccess(fileUID, fileGID, perm, uid, gid, mask uint32) bool {
	mask &= unix.R_OK | unix.W_OK | unix.X_OK
	if mask == unix.F_OK {
		return true
	}
	if uid == 0 {
		if mask&unix.X_OK != 0 && perm&0o111 == 0 {
			return false
		}
		return true
	}

	var granted uint32
	switch {
	case uid == fileUID:
		granted = perm >> 6
	case gid == fileGID:
		granted = perm >> 3
	default:
		granted = perm
	}
	granted &= 0o7
	return mask&granted == mask
}

func checkRecord(record inode.Record, caller Caller, mask uint32) error {
	if !CheckAccess(record.UID, record.GID, record.Perm, caller.UID, caller.GID, mask) {
		return syscall.EACCES
	}
	return nil
}

// Access checks caller's permission for mask on id.
func (f *FileSystem) Access(caller Caller, id inode.ID, mask uint32) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	record, err := f.record(id)
	if err != nil {
		return err
	}
	return checkRecord(record, caller, mask)
}
