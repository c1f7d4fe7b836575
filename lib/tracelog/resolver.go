// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ParentResolver returns the parent pid of a live process.
type ParentResolver interface {
	ParentPID(pid uint32) (uint32, error)
}

// ResolverFunc adapts a function to ParentResolver.
type ResolverFunc func(pid uint32) (uint32, error)

func (f ResolverFunc) ParentPID(pid uint32) (uint32, error) { return f(pid) }

// ProcResolver reads the PPid field of /proc/<pid>/status.
//
// The answer reflects the process tree at the moment of the call. A
// process that has already exited cannot be resolved, and a process
// whose parent exited reports its reaper.
type ProcResolver struct {
	// Root is the procfs mount point. Empty means "/proc".
	Root string
}

func (r ProcResolver) ParentPID(pid uint32) (uint32, error) {
	root := r.Root
	if root == "" {
		root = "/proc"
	}
	path := filepath.Join(root, strconv.FormatUint(uint64(pid), 10), "status")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("resolving parent of pid %d: %w", pid, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Bytes()
		value, found := bytes.CutPrefix(line, []byte("PPid:"))
		if !found {
			continue
		}
		ppid, err := strconv.ParseUint(string(bytes.TrimSpace(value)), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("parsing PPid of pid %d: %w", pid, err)
		}
		return uint32(ppid), nil
	}
	return 0, fmt.Errorf("no PPid field in %s", path)
}
