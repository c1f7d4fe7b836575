// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"syscall"
	"time"

	"github.com/cairn-build/cairn/lib/inode"
	"github.com/cairn-build/cairn/lib/tracelog"
	"golang.org/x/sys/unix"
)

// SetAttr lists the attribute changes of one setattr request. Nil
// fields are left unchanged.
type SetAttr struct {
	Mode *uint32
	UID  *uint32
	GID  *uint32
	Size *uint64

	Atime *time.Time
	Mtime *time.Time

	// AtimeNow and MtimeNow set the time to the current time and take
	// precedence over Atime and Mtime.
	AtimeNow bool
	MtimeNow bool
}

func (s SetAttr) touchesTimes() bool {
	return s.Atime != nil || s.Mtime != nil || s.AtimeNow || s.MtimeNow
}

// SetAttr applies changes to id. Mode, ownership, size, and times are
// applied in that order, each as its own backing syscall followed by
// a metadata refresh and a trace record. Processing stops at the
// first failure; changes already applied remain applied and recorded.
func (f *FileSystem) SetAttr(caller Caller, id inode.ID, changes SetAttr) (inode.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, err := f.record(id)
	if err != nil {
		return inode.Record{}, err
	}
	path := record.RealPath

	if changes.Mode != nil {
		if caller.UID != 0 && caller.UID != record.UID {
			return inode.Record{}, syscall.EPERM
		}
		if err := unix.Chmod(path, *changes.Mode&0o7777); err != nil {
			return inode.Record{}, err
		}
		if record, err = f.table.Refresh(path); err != nil {
			return inode.Record{}, err
		}
		f.tracer.Trace(caller.PID, tracelog.OpWrite, path)
	}

	if changes.UID != nil || changes.GID != nil {
		uid, gid := -1, -1
		if changes.UID != nil {
			uid = int(*changes.UID)
		}
		if changes.GID != nil {
			gid = int(*changes.GID)
		}
		if err := unix.Lchown(path, uid, gid); err != nil {
			return inode.Record{}, err
		}
		if record, err = f.table.Refresh(path); err != nil {
			return inode.Record{}, err
		}
		f.tracer.Trace(caller.PID, tracelog.OpWrite, path)
	}

	if changes.Size != nil {
		if record.Kind != inode.KindFile {
			return inode.Record{}, syscall.EINVAL
		}
		if err := unix.Truncate(path, int64(*changes.Size)); err != nil {
			return inode.Record{}, err
		}
		if record, err = f.table.Refresh(path); err != nil {
			return inode.Record{}, err
		}
		f.tracer.Trace(caller.PID, tracelog.OpWrite, path)
	}

	if changes.touchesTimes() {
		times := []unix.Timespec{
			timespec(changes.Atime, changes.AtimeNow),
			timespec(changes.Mtime, changes.MtimeNow),
		}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return inode.Record{}, err
		}
		if record, err = f.table.Refresh(path); err != nil {
			return inode.Record{}, err
		}
		f.tracer.Trace(caller.PID, tracelog.OpTouch, path)
	}

	return record, nil
}

func timespec(value *time.Time, now bool) unix.Timespec {
	switch {
	case now:
		return unix.Timespec{Nsec: unix.UTIME_NOW}
	case value != nil:
		return unix.NsecToTimespec(value.UnixNano())
	default:
		return unix.Timespec{Nsec: unix.UTIME_OMIT}
	}
}
