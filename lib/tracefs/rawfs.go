// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cairn-build/cairn/lib/inode"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// rawFileSystem adapts a FileSystem to go-fuse's raw protocol API.
// Requests it does not override fall through to the default
// implementation and fail with ENOSYS; for create the kernel then
// falls back to mknod followed by open.
type rawFileSystem struct {
	fuse.RawFileSystem

	fs     *FileSystem
	logger *slog.Logger
}

var _ fuse.RawFileSystem = (*rawFileSystem)(nil)

func newRawFileSystem(fs *FileSystem, logger *slog.Logger) *rawFileSystem {
	return &rawFileSystem{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fs:            fs,
		logger:        logger,
	}
}

func (r *rawFileSystem) String() string { return "cairn-fuse" }

func (r *rawFileSystem) OnUnmount() {
	r.logger.Debug("kernel reported unmount")
}

func callerOf(header *fuse.InHeader) Caller {
	return Caller{PID: header.Pid, UID: header.Uid, GID: header.Gid}
}

// reply logs the outcome of a request at debug level and converts err
// to a status.
func (r *rawFileSystem) reply(op string, header *fuse.InHeader, err error, attrs ...any) fuse.Status {
	errno := Errno(err)
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		attrs = append(attrs, "node", header.NodeId, "pid", header.Pid)
		if errno != 0 {
			attrs = append(attrs, "errno", errno.Error())
		}
		r.logger.Debug(op, attrs...)
	}
	return fuse.Status(errno)
}

func fillAttr(record inode.Record, out *fuse.Attr) {
	out.Ino = uint64(record.ID)
	out.Size = record.Size
	out.Blocks = record.Blocks
	out.Atime, out.Atimensec = splitTime(record.Atime)
	out.Mtime, out.Mtimensec = splitTime(record.Mtime)
	out.Ctime, out.Ctimensec = splitTime(record.Ctime)
	out.Mode = record.Mode()
	out.Nlink = record.Nlink
	out.Uid = record.UID
	out.Gid = record.GID
	out.Rdev = record.Rdev
	out.Blksize = record.Blksize
}

func splitTime(value time.Time) (uint64, uint32) {
	return uint64(value.Unix()), uint32(value.Nanosecond())
}

// fillEntry leaves the entry and attribute timeouts at zero.
func fillEntry(record inode.Record, out *fuse.EntryOut) {
	out.NodeId = uint64(record.ID)
	out.Generation = 0
	fillAttr(record, &out.Attr)
}

func (r *rawFileSystem) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	record, err := r.fs.Lookup(inode.ID(header.NodeId), name)
	if err == nil {
		fillEntry(record, out)
	}
	return r.reply("lookup", header, err, "name", name)
}

func (r *rawFileSystem) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	record, err := r.fs.GetAttr(inode.ID(input.NodeId))
	if err == nil {
		fillAttr(record, &out.Attr)
	}
	return r.reply("getattr", &input.InHeader, err)
}

func (r *rawFileSystem) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	var changes SetAttr
	valid := input.Valid
	if valid&fuse.FATTR_MODE != 0 {
		mode := input.Mode
		changes.Mode = &mode
	}
	if valid&fuse.FATTR_UID != 0 {
		uid := input.Owner.Uid
		changes.UID = &uid
	}
	if valid&fuse.FATTR_GID != 0 {
		gid := input.Owner.Gid
		changes.GID = &gid
	}
	if valid&fuse.FATTR_SIZE != 0 {
		size := input.Size
		changes.Size = &size
	}
	if valid&fuse.FATTR_ATIME_NOW != 0 {
		changes.AtimeNow = true
	} else if valid&fuse.FATTR_ATIME != 0 {
		atime := time.Unix(int64(input.Atime), int64(input.Atimensec))
		changes.Atime = &atime
	}
	if valid&fuse.FATTR_MTIME_NOW != 0 {
		changes.MtimeNow = true
	} else if valid&fuse.FATTR_MTIME != 0 {
		mtime := time.Unix(int64(input.Mtime), int64(input.Mtimensec))
		changes.Mtime = &mtime
	}

	record, err := r.fs.SetAttr(callerOf(&input.InHeader), inode.ID(input.NodeId), changes)
	if err == nil {
		fillAttr(record, &out.Attr)
	}
	return r.reply("setattr", &input.InHeader, err, "valid", valid)
}

func (r *rawFileSystem) Readlink(cancel <-chan struct{}, header *fuse.InHeader) ([]byte, fuse.Status) {
	target, err := r.fs.Readlink(callerOf(header), inode.ID(header.NodeId))
	return []byte(target), r.reply("readlink", header, err)
}

func (r *rawFileSystem) Mknod(cancel <-chan struct{}, input *fuse.MknodIn, name string, out *fuse.EntryOut) fuse.Status {
	record, err := r.fs.Mknod(callerOf(&input.InHeader), inode.ID(input.NodeId), name, input.Mode)
	if err == nil {
		fillEntry(record, out)
	}
	return r.reply("mknod", &input.InHeader, err, "name", name, "mode", input.Mode)
}

func (r *rawFileSystem) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	record, err := r.fs.Mkdir(callerOf(&input.InHeader), inode.ID(input.NodeId), name, input.Mode)
	if err == nil {
		fillEntry(record, out)
	}
	return r.reply("mkdir", &input.InHeader, err, "name", name)
}

func (r *rawFileSystem) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	err := r.fs.Unlink(callerOf(header), inode.ID(header.NodeId), name)
	return r.reply("unlink", header, err, "name", name)
}

func (r *rawFileSystem) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	err := r.fs.Rmdir(callerOf(header), inode.ID(header.NodeId), name)
	return r.reply("rmdir", header, err, "name", name)
}

func (r *rawFileSystem) Symlink(cancel <-chan struct{}, header *fuse.InHeader, pointedTo string, linkName string, out *fuse.EntryOut) fuse.Status {
	record, err := r.fs.Symlink(callerOf(header), inode.ID(header.NodeId), linkName, pointedTo)
	if err == nil {
		fillEntry(record, out)
	}
	return r.reply("symlink", header, err, "name", linkName)
}

func (r *rawFileSystem) Rename(cancel <-chan struct{}, input *fuse.RenameIn, oldName string, newName string) fuse.Status {
	err := r.fs.Rename(callerOf(&input.InHeader), inode.ID(input.NodeId), oldName, inode.ID(input.Newdir), newName, input.Flags)
	return r.reply("rename", &input.InHeader, err, "old", oldName, "new", newName)
}

func (r *rawFileSystem) Link(cancel <-chan struct{}, input *fuse.LinkIn, filename string, out *fuse.EntryOut) fuse.Status {
	record, err := r.fs.Link(callerOf(&input.InHeader), inode.ID(input.Oldnodeid), inode.ID(input.NodeId), filename)
	if err == nil {
		fillEntry(record, out)
	}
	return r.reply("link", &input.InHeader, err, "name", filename)
}

func (r *rawFileSystem) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	err := r.fs.Access(callerOf(&input.InHeader), inode.ID(input.NodeId), input.Mask)
	return r.reply("access", &input.InHeader, err, "mask", input.Mask)
}

func (r *rawFileSystem) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	err := r.fs.Open(callerOf(&input.InHeader), inode.ID(input.NodeId), input.Flags)
	return r.reply("open", &input.InHeader, err, "flags", input.Flags)
}

func (r *rawFileSystem) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	data, err := r.fs.Read(inode.ID(input.NodeId), int64(input.Offset), int(input.Size))
	status := r.reply("read", &input.InHeader, err, "offset", input.Offset, "size", input.Size)
	if err != nil {
		return nil, status
	}
	return fuse.ReadResultData(data), status
}

func (r *rawFileSystem) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	written, err := r.fs.Write(inode.ID(input.NodeId), int64(input.Offset), data)
	return uint32(written), r.reply("write", &input.InHeader, err, "offset", input.Offset, "size", len(data))
}

// Release acknowledges the close of a file. Open keeps no handle.
func (r *rawFileSystem) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {}

func (r *rawFileSystem) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	err := r.fs.OpenDir(callerOf(&input.InHeader), inode.ID(input.NodeId), input.Flags)
	return r.reply("opendir", &input.InHeader, err)
}

func (r *rawFileSystem) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	entries, err := r.fs.ReadDir(inode.ID(input.NodeId), input.Offset)
	if err == nil {
		for _, entry := range entries {
			if !out.AddDirEntry(direntOf(entry)) {
				break
			}
		}
	}
	return r.reply("readdir", &input.InHeader, err, "offset", input.Offset)
}

func (r *rawFileSystem) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	directory := inode.ID(input.NodeId)
	entries, err := r.fs.ReadDir(directory, input.Offset)
	if err == nil {
		for _, entry := range entries {
			entryOut := out.AddDirLookupEntry(direntOf(entry))
			if entryOut == nil {
				break
			}
			record, lookupErr := r.fs.Lookup(directory, entry.Name)
			if lookupErr != nil {
				// Vanished between listing and lookup. A zero node id
				// tells the kernel not to create an entry.
				*entryOut = fuse.EntryOut{}
				continue
			}
			fillEntry(record, entryOut)
		}
	}
	return r.reply("readdirplus", &input.InHeader, err, "offset", input.Offset)
}

func direntOf(entry DirEntry) fuse.DirEntry {
	return fuse.DirEntry{
		Name: entry.Name,
		Ino:  uint64(entry.ID),
		Mode: entry.Kind.TypeBits(),
		Off:  entry.Offset,
	}
}

// ReleaseDir acknowledges the close of a directory.
func (r *rawFileSystem) ReleaseDir(input *fuse.ReleaseIn) {}

func (r *rawFileSystem) StatFs(cancel <-chan struct{}, header *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	stats, err := r.fs.StatFs(callerOf(header), inode.ID(header.NodeId))
	if err == nil {
		out.Blocks = stats.Blocks
		out.Bfree = stats.Bfree
		out.Bavail = stats.Bavail
		out.Files = stats.Files
		out.Ffree = stats.Ffree
		out.Bsize = uint32(stats.Bsize)
		out.NameLen = uint32(stats.Namelen)
		out.Frsize = uint32(stats.Frsize)
	}
	return r.reply("statfs", header, err)
}
