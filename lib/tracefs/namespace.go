// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cairn-build/cairn/lib/inode"
	"github.com/cairn-build/cairn/lib/tracelog"
	"golang.org/x/sys/unix"
)

// Readlink returns the target of the symlink id.
func (f *FileSystem) Readlink(caller Caller, id inode.ID) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	record, err := f.record(id)
	if err != nil {
		return "", err
	}
	if record.Kind != inode.KindSymlink {
		return "", syscall.EINVAL
	}
	target, err := os.Readlink(record.RealPath)
	if err != nil {
		return "", err
	}
	f.tracer.Trace(caller.PID, tracelog.OpRead, record.RealPath)
	return target, nil
}

// exists reports whether path resolves without following a final
// symlink.
func exists(path string) (bool, error) {
	var st unix.Stat_t
	err := unix.Lstat(path, &st)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.ENOENT) {
		return false, nil
	}
	return false, err
}

// Mknod creates name in parent. Regular-file and symlink kinds create
// an empty regular file with the requested permissions; the directory
// kind creates a directory. Other kinds fail with ENOSYS.
func (f *FileSystem) Mknod(caller Caller, parent inode.ID, name string, mode uint32) (inode.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.childPath(parent, name)
	if err != nil {
		return inode.Record{}, err
	}
	found, err := exists(path)
	if err != nil {
		return inode.Record{}, err
	}
	if found {
		return inode.Record{}, syscall.EEXIST
	}

	perm := mode & 0o7777
	switch mode & unix.S_IFMT {
	case unix.S_IFREG, unix.S_IFLNK, 0:
		fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_WRONLY|unix.O_CLOEXEC, perm)
		if err != nil {
			return inode.Record{}, err
		}
		unix.Close(fd)
	case unix.S_IFDIR:
		if err := unix.Mkdir(path, perm); err != nil {
			return inode.Record{}, err
		}
	default:
		return inode.Record{}, syscall.ENOSYS
	}
	return f.created(caller, path)
}

// Mkdir creates the directory name in parent.
func (f *FileSystem) Mkdir(caller Caller, parent inode.ID, name string, mode uint32) (inode.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.childPath(parent, name)
	if err != nil {
		return inode.Record{}, err
	}
	if err := unix.Mkdir(path, mode&0o7777); err != nil {
		return inode.Record{}, err
	}
	return f.created(caller, path)
}

// Symlink creates name in parent pointing at target.
func (f *FileSystem) Symlink(caller Caller, parent inode.ID, name, target string) (inode.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.childPath(parent, name)
	if err != nil {
		return inode.Record{}, err
	}
	if err := unix.Symlink(target, path); err != nil {
		return inode.Record{}, err
	}
	return f.created(caller, path)
}

// created records a freshly created path and traces it as a write.
// Must be called with f.mu held.
func (f *FileSystem) created(caller Caller, path string) (inode.Record, error) {
	record, err := f.table.Refresh(path)
	if err != nil {
		return inode.Record{}, err
	}
	f.refreshParent(path)
	f.tracer.Trace(caller.PID, tracelog.OpWrite, path)
	return record, nil
}

// Unlink removes the non-directory name from parent.
func (f *FileSystem) Unlink(caller Caller, parent inode.ID, name string) error {
	return f.remove(caller, parent, name, unix.Unlink)
}

// Rmdir removes the empty directory name from parent.
func (f *FileSystem) Rmdir(caller Caller, parent inode.ID, name string) error {
	return f.remove(caller, parent, name, unix.Rmdir)
}

func (f *FileSystem) remove(caller Caller, parent inode.ID, name string, removeFunc func(string) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.childPath(parent, name)
	if err != nil {
		return err
	}
	victim, err := f.table.Stat(path)
	if err != nil {
		return err
	}
	if err := removeFunc(path); err != nil {
		return err
	}
	f.forget(victim, path)
	f.refreshParent(path)
	f.tracer.Trace(caller.PID, tracelog.OpDelete, path)
	return nil
}

// forget drops the record of an unlinked object. A file that still
// has other links keeps its id: the record is re-read from a
// surviving name so open handles continue to resolve.
func (f *FileSystem) forget(victim inode.Record, removedPath string) {
	if victim.Kind != inode.KindDirectory && victim.Nlink > 1 {
		if survivor, ok := f.findLink(victim.ID, removedPath); ok {
			if _, err := f.table.Refresh(survivor); err == nil {
				return
			}
		}
	}
	f.table.Remove(victim.ID)
}

// findLink searches for another name of id below the root, starting
// with the directory the removed name lived in.
func (f *FileSystem) findLink(id inode.ID, removedPath string) (string, bool) {
	matches := func(path string) bool {
		var st unix.Stat_t
		return path != removedPath && unix.Lstat(path, &st) == nil && inode.ID(st.Ino) == id
	}

	if entries, err := os.ReadDir(filepath.Dir(removedPath)); err == nil {
		for _, entry := range entries {
			if path := filepath.Join(filepath.Dir(removedPath), entry.Name()); matches(path) {
				return path, true
			}
		}
	}

	var found string
	filepath.WalkDir(f.table.Root(), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() && matches(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// Rename moves name in parent to newName in newParent. flags are
// renameat2 flags; zero is a plain rename.
func (f *FileSystem) Rename(caller Caller, parent inode.ID, name string, newParent inode.ID, newName string, flags uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	oldPath, err := f.childPath(parent, name)
	if err != nil {
		return err
	}
	newPath, err := f.childPath(newParent, newName)
	if err != nil {
		return err
	}
	moved, err := f.table.Stat(oldPath)
	if err != nil {
		return err
	}
	replaced, replacedErr := f.table.Stat(newPath)

	if flags == 0 {
		err = unix.Rename(oldPath, newPath)
	} else {
		err = unix.Renameat2(unix.AT_FDCWD, oldPath, unix.AT_FDCWD, newPath, uint(flags))
	}
	if err != nil {
		return err
	}

	if _, err := f.table.Refresh(newPath); err != nil {
		return err
	}
	switch {
	case flags&unix.RENAME_EXCHANGE != 0:
		if _, err := f.table.Refresh(oldPath); err != nil {
			return err
		}
		f.table.Exchange(oldPath, newPath)
	default:
		if replacedErr == nil && replaced.ID != moved.ID {
			f.table.Remove(replaced.ID)
		}
		if moved.Kind == inode.KindDirectory {
			f.table.Reparent(oldPath, newPath)
		}
	}
	f.refreshParent(oldPath)
	f.refreshParent(newPath)
	f.tracer.Trace(caller.PID, tracelog.OpMove, oldPath, newPath)
	return nil
}

// Link creates newName in newParent as a hard link to id.
func (f *FileSystem) Link(caller Caller, id inode.ID, newParent inode.ID, newName string) (inode.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.record(id)
	if err != nil {
		return inode.Record{}, err
	}
	if existing.Kind == inode.KindDirectory {
		return inode.Record{}, syscall.EPERM
	}
	newPath, err := f.childPath(newParent, newName)
	if err != nil {
		return inode.Record{}, err
	}
	if err := unix.Link(existing.RealPath, newPath); err != nil {
		return inode.Record{}, err
	}
	record, err := f.table.Refresh(newPath)
	if err != nil {
		return inode.Record{}, err
	}
	f.refreshParent(newPath)
	f.tracer.Trace(caller.PID, tracelog.OpWrite, existing.RealPath, newPath)
	return record, nil
}
