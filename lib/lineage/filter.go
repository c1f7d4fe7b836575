// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import (
	"slices"

	"github.com/cairn-build/cairn/lib/tracelog"
)

// Options selects the entries Filter keeps.
type Options struct {
	// RootPID is the pid of the build's top-level process.
	RootPID uint32

	// Since is the build start time in unix seconds. Entries with an
	// earlier timestamp are discarded.
	Since int64

	// Ops restricts the output to these op codes. The empty set keeps
	// every op.
	Ops tracelog.OpSet
}

// Set is a set of pids.
type Set map[uint32]struct{}

// Contains reports whether pid is in the set.
func (s Set) Contains(pid uint32) bool {
	_, ok := s[pid]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []uint32 {
	pids := make([]uint32, 0, len(s))
	for pid := range s {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids
}

// Result is the outcome of Filter.
type Result struct {
	// Entries are the kept entries in log order.
	Entries []tracelog.Entry

	// Lineage is every pid shown to descend from the root, including
	// the root. It is computed before the op restriction, so a
	// process whose entries were all filtered out still appears.
	Lineage Set
}

// Filter returns the entries of entries that belong to the build
// rooted at options.RootPID.
//
// Lineage grows breadth-first from the root through an index of
// entries by logged ppid. Each pid is expanded once, so the cost is
// linear in the number of entries. The result is the same as
// repeatedly sweeping the log until no new entry is accepted.
func Filter(entries []tracelog.Entry, options Options) Result {
	root := options.RootPID
	lineage := Set{root: {}}
	accepted := make([]bool, len(entries))

	byParent := make(map[uint32][]int)
	for index, entry := range entries {
		if entry.Timestamp < options.Since {
			continue
		}
		if entry.PID == root {
			accepted[index] = true
			continue
		}
		byParent[entry.PPID] = append(byParent[entry.PPID], index)
	}

	queue := []uint32{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, index := range byParent[parent] {
			accepted[index] = true
			child := entries[index].PID
			if !lineage.Contains(child) {
				lineage[child] = struct{}{}
				queue = append(queue, child)
			}
		}
	}

	var kept []tracelog.Entry
	for index, entry := range entries {
		if accepted[index] && options.Ops.Allows(entry.Op) {
			kept = append(kept, entry)
		}
	}
	slices.SortStableFunc(kept, func(a, b tracelog.Entry) int {
		switch {
		case a.Order < b.Order:
			return -1
		case a.Order > b.Order:
			return 1
		default:
			return 0
		}
	})

	return Result{Entries: kept, Lineage: lineage}
}

// FilterFile parses the trace log at path and filters it. Failing to
// open or read the log is an error; malformed lines are skipped and
// counted in the returned log.
func FilterFile(path string, options Options) (Result, *tracelog.Log, error) {
	log, err := tracelog.ParseFile(path)
	if err != nil {
		return Result{}, nil, err
	}
	return Filter(log.Entries, options), log, nil
}
