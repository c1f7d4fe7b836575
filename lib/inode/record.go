// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package inode

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ID is a virtual inode number.
type ID uint64

// RootID is the id under which the mount root is reported.
const RootID ID = 1

// ErrUnsupportedKind is returned for backing objects that are not a
// regular file, directory, or symlink.
var ErrUnsupportedKind = errors.New("unsupported file kind")

// Kind is the type of a backing object.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindDirectory
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// TypeBits returns the S_IFMT bits for the kind.
func (k Kind) TypeBits() uint32 {
	switch k {
	case KindDirectory:
		return unix.S_IFDIR
	case KindSymlink:
		return unix.S_IFLNK
	default:
		return unix.S_IFREG
	}
}

// KindOf classifies a full st_mode value.
func KindOf(mode uint32) (Kind, error) {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return KindFile, nil
	case unix.S_IFDIR:
		return KindDirectory, nil
	case unix.S_IFLNK:
		return KindSymlink, nil
	default:
		return 0, fmt.Errorf("mode %#o: %w", mode&unix.S_IFMT, ErrUnsupportedKind)
	}
}

// Record is the attribute snapshot of one backing object.
type Record struct {
	ID   ID
	Kind Kind

	// Perm holds the permission bits, including setuid, setgid, and
	// sticky. The type bits are carried by Kind.
	Perm uint32

	UID   uint32
	GID   uint32
	Size  uint64
	Nlink uint32

	Blksize uint32
	Blocks  uint64
	Rdev    uint32

	Atime time.Time
	Mtime time.Time
	Ctime time.Time

	// RealPath is the absolute path of the object in the backing tree.
	RealPath string
}

// Mode returns the full st_mode value: type bits plus permissions.
func (r Record) Mode() uint32 {
	return r.Kind.TypeBits() | r.Perm
}

// FromStat builds a record from an lstat result. The id is the native
// inode number; callers remap the mount root.
func FromStat(realPath string, st *unix.Stat_t) (Record, error) {
	kind, err := KindOf(uint32(st.Mode))
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", realPath, err)
	}
	return Record{
		ID:       ID(st.Ino),
		Kind:     kind,
		Perm:     uint32(st.Mode) & 0o7777,
		UID:      st.Uid,
		GID:      st.Gid,
		Size:     uint64(st.Size),
		Nlink:    uint32(st.Nlink),
		Blksize:  uint32(st.Blksize),
		Blocks:   uint64(st.Blocks),
		Rdev:     uint32(st.Rdev),
		Atime:    time.Unix(st.Atim.Unix()),
		Mtime:    time.Unix(st.Mtim.Unix()),
		Ctime:    time.Unix(st.Ctim.Unix()),
		RealPath: realPath,
	}, nil
}

// Lstat reads the metadata of realPath without following a final
// symlink.
func Lstat(realPath string) (Record, error) {
	var st unix.Stat_t
	if err := unix.Lstat(realPath, &st); err != nil {
		return Record{}, err
	}
	return FromStat(realPath, &st)
}
