// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/cairn-build/cairn/lib/inode"
	"github.com/cairn-build/cairn/lib/tracelog"
	"golang.org/x/sys/unix"
)

// execFlag is the kernel's FMODE_EXEC bit, set in the open flags of
// opens issued by execve.
const execFlag = 0x20

// Access is the decoded access mode of an open request.
type Access struct {
	Read  bool
	Write bool
	Exec  bool
}

// mask returns the permission bits the access requires.
func (a Access) mask() uint32 {
	var mask uint32
	if a.Exec {
		mask |= unix.X_OK
	} else if a.Read {
		mask |= unix.R_OK
	}
	if a.Write {
		mask |= unix.W_OK
	}
	return mask
}

// DecodeAccess decodes open flags. Exactly one access mode must be
// set; a read-only open that also asks for truncation is refused.
func DecodeAccess(flags uint32) (Access, error) {
	switch flags & unix.O_ACCMODE {
	case unix.O_RDONLY:
		if flags&unix.O_TRUNC != 0 {
			return Access{}, syscall.EACCES
		}
		return Access{Read: true, Exec: flags&execFlag != 0}, nil
	case unix.O_WRONLY:
		return Access{Write: true}, nil
	case unix.O_RDWR:
		return Access{Read: true, Write: true}, nil
	default:
		return Access{}, syscall.EINVAL
	}
}

// Open validates an open of the regular file id and traces it as a
// read or a write. The backing file is opened once with the same
// access mode to surface backing errors, and closed again; reads and
// writes reopen by path.
func (f *FileSystem) Open(caller Caller, id inode.ID, flags uint32) error {
	access, err := DecodeAccess(flags)
	if err != nil {
		return err
	}

	// Truncating opens change the backing file.
	if access.Write && flags&unix.O_TRUNC != 0 {
		f.mu.Lock()
		defer f.mu.Unlock()
	} else {
		f.mu.RLock()
		defer f.mu.RUnlock()
	}

	record, err := f.record(id)
	if err != nil {
		return err
	}
	if record.Kind == inode.KindDirectory {
		return syscall.EISDIR
	}
	if err := checkRecord(record, caller, access.mask()); err != nil {
		return err
	}

	openFlags := unix.O_RDONLY
	if access.Write {
		openFlags = unix.O_WRONLY
		if access.Read {
			openFlags = unix.O_RDWR
		}
		openFlags |= int(flags) & unix.O_TRUNC
	}
	fd, err := unix.Open(record.RealPath, openFlags|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	unix.Close(fd)

	if openFlags&unix.O_TRUNC != 0 {
		if _, err := f.table.Refresh(record.RealPath); err != nil {
			return err
		}
	}

	op := tracelog.OpRead
	if access.Write {
		op = tracelog.OpWrite
	}
	f.tracer.Trace(caller.PID, op, record.RealPath)
	return nil
}

// OpenDir validates an open of the directory id.
func (f *FileSystem) OpenDir(caller Caller, id inode.ID, flags uint32) error {
	if _, err := DecodeAccess(flags); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	record, err := f.record(id)
	if err != nil {
		return err
	}
	if record.Kind != inode.KindDirectory {
		return syscall.ENOTDIR
	}
	return checkRecord(record, caller, unix.R_OK)
}

// Read returns up to size bytes of id starting at offset. The size is
// clamped to the bytes remaining in the file, so a read at or past the
// end returns an empty slice.
func (f *FileSystem) Read(id inode.ID, offset int64, size int) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	record, err := f.record(id)
	if err != nil {
		return nil, err
	}
	if record.Kind == inode.KindDirectory {
		return nil, syscall.EISDIR
	}

	file, err := os.Open(record.RealPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	remaining := info.Size() - offset
	if remaining <= 0 {
		return []byte{}, nil
	}
	if int64(size) > remaining {
		size = int(remaining)
	}

	buffer := make([]byte, size)
	count, err := file.ReadAt(buffer, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buffer[:count], nil
}

// Write writes data to id at offset and refreshes its attributes.
func (f *FileSystem) Write(id inode.ID, offset int64, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, err := f.record(id)
	if err != nil {
		return 0, err
	}
	if record.Kind == inode.KindDirectory {
		return 0, syscall.EISDIR
	}

	file, err := os.OpenFile(record.RealPath, os.O_WRONLY, 0)
	if err != nil {
		return 0, err
	}
	count, err := file.WriteAt(data, offset)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return count, err
	}
	if _, err := f.table.Refresh(record.RealPath); err != nil {
		return count, err
	}
	return count, nil
}

// DirEntry is one directory listing entry.
type DirEntry struct {
	Name string
	ID   inode.ID
	Kind inode.Kind

	// Offset is the value that resumes the listing after this entry.
	Offset uint64
}

// ReadDir lists the directory id starting at entry index offset.
// Entries are in name order, so offsets are stable between calls as
// long as the directory is unchanged. Objects of unsupported kinds are
// left out.
func (f *FileSystem) ReadDir(id inode.ID, offset uint64) ([]DirEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	directory, err := f.directory(id)
	if err != nil {
		return nil, err
	}
	listing, err := os.ReadDir(directory.RealPath)
	if err != nil {
		return nil, err
	}

	var entries []DirEntry
	index := uint64(0)
	for _, item := range listing {
		record, err := f.table.Stat(directory.RealPath + "/" + item.Name())
		if errors.Is(err, inode.ErrUnsupportedKind) || errors.Is(err, unix.ENOENT) {
			continue
		}
		if err != nil {
			return nil, err
		}
		index++
		if index <= offset {
			continue
		}
		entries = append(entries, DirEntry{
			Name:   item.Name(),
			ID:     record.ID,
			Kind:   record.Kind,
			Offset: index,
		})
	}
	return entries, nil
}

// StatFs returns statistics of the backing filesystem holding id and
// traces the query.
func (f *FileSystem) StatFs(caller Caller, id inode.ID) (unix.Statfs_t, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var stats unix.Statfs_t
	record, err := f.record(id)
	if err != nil {
		return stats, err
	}
	if err := unix.Statfs(record.RealPath, &stats); err != nil {
		return stats, err
	}
	f.tracer.Trace(caller.PID, tracelog.OpQuery, record.RealPath)
	return stats, nil
}
