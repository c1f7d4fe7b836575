// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/cairn-build/cairn/lib/inode"
	"github.com/cairn-build/cairn/lib/tracelog"
)

// Caller identifies the process that issued a request.
type Caller struct {
	PID uint32
	UID uint32
	GID uint32
}

// Tracer receives one call per traced operation. A move passes the
// source and destination paths; a link passes the existing and new
// paths. Paths are real backing paths.
type Tracer interface {
	Trace(pid uint32, op tracelog.Op, paths ...string)
}

// Options configures a FileSystem.
type Options struct {
	// Root is the backing directory. Required.
	Root string

	// Tracer receives traced operations. Required.
	Tracer Tracer

	// Logger receives per-request debug messages. If nil, only
	// errors are logged, to stderr.
	Logger *slog.Logger
}

// FileSystem serves filesystem requests against a backing directory.
type FileSystem struct {
	table  *inode.Table
	tracer Tracer
	logger *slog.Logger

	// mu is held exclusively by operations that change the backing
	// tree and shared by the rest.
	mu sync.RWMutex
}

// New scans the backing root into a fresh inode table and returns a
// FileSystem serving it.
func New(options Options) (*FileSystem, error) {
	if options.Root == "" {
		return nil, fmt.Errorf("backing root is required")
	}
	if options.Tracer == nil {
		return nil, fmt.Errorf("tracer is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	root, err := filepath.Abs(options.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving backing root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("backing root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backing root %s is not a directory", root)
	}

	table := inode.NewTable(root)
	count, err := table.Scan()
	if err != nil {
		return nil, err
	}
	options.Logger.Info("backing tree scanned", "root", root, "records", count)

	return &FileSystem{
		table:  table,
		tracer: options.Tracer,
		logger: options.Logger,
	}, nil
}

// Root returns the absolute backing root.
func (f *FileSystem) Root() string { return f.table.Root() }

// record returns the cached record for id or ENOENT.
func (f *FileSystem) record(id inode.ID) (inode.Record, error) {
	record, ok := f.table.Get(id)
	if !ok {
		return inode.Record{}, syscall.ENOENT
	}
	return record, nil
}

// directory returns the record for id, which must be a directory.
func (f *FileSystem) directory(id inode.ID) (inode.Record, error) {
	record, err := f.record(id)
	if err != nil {
		return inode.Record{}, err
	}
	if record.Kind != inode.KindDirectory {
		return inode.Record{}, syscall.ENOTDIR
	}
	return record, nil
}

// childPath resolves name inside the directory id.
func (f *FileSystem) childPath(parent inode.ID, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return "", syscall.EINVAL
	}
	directory, err := f.directory(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(directory.RealPath, name), nil
}

// refreshParent re-reads a directory whose entries just changed. The
// directory is already known to exist, so failure is only logged.
func (f *FileSystem) refreshParent(path string) {
	if _, err := f.table.Refresh(filepath.Dir(path)); err != nil {
		f.logger.Debug("refreshing parent directory", "path", path, "error", err)
	}
}

// Lookup resolves name inside parent and records the result.
func (f *FileSystem) Lookup(parent inode.ID, name string) (inode.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path, err := f.childPath(parent, name)
	if err != nil {
		return inode.Record{}, err
	}
	return f.table.Refresh(path)
}

// GetAttr returns the cached attributes of id.
func (f *FileSystem) GetAttr(id inode.ID) (inode.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.record(id)
}
