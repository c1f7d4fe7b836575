// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package inode

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
)

// ErrIDCollision is returned when a non-root object's native inode
// number equals RootID.
var ErrIDCollision = errors.New("native inode collides with the root id")

// Table maps virtual inode ids to attribute records. Records are
// copied in and out; no caller holds a reference into the map.
//
// Table is safe for concurrent use. Callers that need a syscall and
// the following Refresh to be atomic with respect to other mutations
// hold their own lock around both.
type Table struct {
	root string

	mu      sync.RWMutex
	records map[ID]Record
}

// NewTable returns an empty table whose root record is the object at
// rootPath. The path is cleaned but not resolved.
func NewTable(rootPath string) *Table {
	return &Table{
		root:    filepath.Clean(rootPath),
		records: make(map[ID]Record),
	}
}

// Root returns the backing path of the mount root.
func (t *Table) Root() string { return t.root }

// Get returns a copy of the record for id.
func (t *Table) Get(id ID) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, ok := t.records[id]
	return record, ok
}

// Put inserts or replaces the record under its id.
func (t *Table) Put(record Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[record.ID] = record
}

// Remove deletes the record for id. Removing an absent id is a no-op.
func (t *Table) Remove(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
}

// Reparent rewrites the backing path of every record strictly below
// oldPrefix to sit below newPrefix instead, after a directory rename.
// The record for oldPrefix itself is left alone. Returns the number of
// records rewritten.
func (t *Table) Reparent(oldPrefix, newPrefix string) int {
	return t.rewritePaths(func(path string) (string, bool) {
		return movePrefix(path, oldPrefix, newPrefix)
	})
}

// Exchange swaps the subtrees below a and b, after a rename that
// exchanged two directories. Returns the number of records rewritten.
func (t *Table) Exchange(a, b string) int {
	return t.rewritePaths(func(path string) (string, bool) {
		if moved, ok := movePrefix(path, a, b); ok {
			return moved, true
		}
		return movePrefix(path, b, a)
	})
}

func (t *Table) rewritePaths(rewrite func(string) (string, bool)) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for id, record := range t.records {
		if path, ok := rewrite(record.RealPath); ok {
			record.RealPath = path
			t.records[id] = record
			count++
		}
	}
	return count
}

// movePrefix replaces directory prefix from with to when path lies
// strictly below from.
func movePrefix(path, from, to string) (string, bool) {
	from = filepath.Clean(from)
	if !strings.HasPrefix(path, from+string(filepath.Separator)) {
		return path, false
	}
	return filepath.Clean(to) + path[len(from):], true
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Stat reads realPath's current metadata and applies the root
// mapping, without touching the table.
func (t *Table) Stat(realPath string) (Record, error) {
	record, err := Lstat(realPath)
	if err != nil {
		return Record{}, err
	}
	if filepath.Clean(realPath) == t.root {
		record.ID = RootID
	} else if record.ID == RootID {
		return Record{}, fmt.Errorf("%s: %w", realPath, ErrIDCollision)
	}
	return record, nil
}

// Refresh re-reads realPath's metadata and stores it. The returned
// record is what was stored.
func (t *Table) Refresh(realPath string) (Record, error) {
	record, err := t.Stat(realPath)
	if err != nil {
		return Record{}, err
	}
	t.Put(record)
	return record, nil
}

// Scan walks the backing tree below the root and records every
// file, directory, and symlink. Symlinks are recorded, not followed.
// Objects of other kinds are skipped. Returns the number of records
// added.
func (t *Table) Scan() (int, error) {
	count := 0
	err := filepath.WalkDir(t.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		record, err := t.Stat(path)
		if errors.Is(err, ErrUnsupportedKind) {
			return nil
		}
		if err != nil {
			return err
		}
		t.Put(record)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("scanning %s: %w", t.root, err)
	}
	return count, nil
}
