// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cairn-build/cairn/lib/tracelog"
)

func parse(t *testing.T, lines ...string) []tracelog.Entry {
	t.Helper()
	log, err := tracelog.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return log.Entries
}

func render(t *testing.T, entries []tracelog.Entry, rewrite Rewrite) string {
	t.Helper()
	var buffer bytes.Buffer
	if err := WriteText(&buffer, entries, rewrite); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	return buffer.String()
}

func TestFilterBuildExample(t *testing.T) {
	entries := parse(t,
		"[INFO] -> 100: 10|1|r|/old",
		"[INFO] -> 200: 10|1|w|/a/b.txt",
		"[INFO] -> 200: 11|10|r|/a/c.txt",
		"[INFO] -> 200: 99|1|w|/z",
	)
	result := Filter(entries, Options{
		RootPID: 10,
		Since:   150,
		Ops:     tracelog.NewOpSet(tracelog.OpWrite, tracelog.OpRead),
	})

	if got, want := render(t, result.Entries, Rewrite{}), "w|/a/b.txt\nr|/a/c.txt\n"; got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
	if got := result.Lineage.Sorted(); !slices.Equal(got, []uint32{10, 11}) {
		t.Errorf("lineage = %v, want [10 11]", got)
	}
}

func TestFilterStartTimeCutoff(t *testing.T) {
	entries := parse(t,
		"[INFO] -> 100: 10|1|w|/before",
		"[INFO] -> 149: 10|1|w|/just-before",
		"[INFO] -> 150: 10|1|w|/at",
		"[INFO] -> 200: 10|1|w|/after",
	)
	result := Filter(entries, Options{RootPID: 10, Since: 150})
	if got, want := render(t, result.Entries, Rewrite{}), "w|/at\nw|/after\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFilterStaleEntriesDoNotSeedLineage(t *testing.T) {
	// pid 20 was a child of 10 in an earlier run. In this run pid 20
	// belongs to someone else, so its new entries must not be kept.
	entries := parse(t,
		"[INFO] -> 100: 20|10|w|/previous-run",
		"[INFO] -> 300: 10|1|r|/this-run",
		"[INFO] -> 300: 21|20|w|/stranger",
	)
	result := Filter(entries, Options{RootPID: 10, Since: 200})
	if got, want := render(t, result.Entries, Rewrite{}), "r|/this-run\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFilterRestoresLogOrderNotTimestampOrder(t *testing.T) {
	// The grandchild's entry appears before the child's in the log.
	// Discovery happens out of order but output follows Order.
	entries := parse(t,
		"[INFO] -> 205: 12|11|w|/grandchild",
		"[INFO] -> 201: 10|1|r|/root",
		"[INFO] -> 209: 11|10|r|/child",
		"[INFO] -> 200: 10|1|w|/root-late-stamp",
	)
	result := Filter(entries, Options{RootPID: 10, Since: 0})
	want := "w|/grandchild\nr|/root\nr|/child\nw|/root-late-stamp\n"
	if got := render(t, result.Entries, Rewrite{}); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestFilterEmptyOpSetKeepsEverything(t *testing.T) {
	entries := parse(t,
		"[INFO] -> 1: 10|1|q|/",
		"[INFO] -> 1: 10|1|t|/stamp",
		"[INFO] -> 1: 10|1|m|/a|/b",
		"[INFO] -> 1: 10|1|d|/c",
	)
	result := Filter(entries, Options{RootPID: 10})
	if len(result.Entries) != 4 {
		t.Errorf("kept %d entries, want 4", len(result.Entries))
	}

	onlyMoves := Filter(entries, Options{RootPID: 10, Ops: tracelog.NewOpSet(tracelog.OpMove)})
	if got := render(t, onlyMoves.Entries, Rewrite{}); got != "m|/a|/b\n" {
		t.Errorf("moves = %q", got)
	}
	if !onlyMoves.Lineage.Contains(10) {
		t.Error("root missing from lineage")
	}
}

func TestFilterRootWithNoEntries(t *testing.T) {
	entries := parse(t, "[INFO] -> 1: 11|10|r|/child-of-silent-root")
	result := Filter(entries, Options{RootPID: 10})
	if len(result.Entries) != 1 {
		t.Errorf("child of root not kept: %+v", result.Entries)
	}

	none := Filter(nil, Options{RootPID: 10})
	if len(none.Entries) != 0 || !none.Lineage.Contains(10) || len(none.Lineage) != 1 {
		t.Errorf("Filter(nil) = %+v", none)
	}
}

func TestFilterSilentIntermediateOrphansDescendants(t *testing.T) {
	// pid 11 never touches the mount, so 12's entry cannot be
	// attributed even though 11 is really a child of 10.
	entries := parse(t,
		"[INFO] -> 1: 10|1|r|/root",
		"[INFO] -> 1: 12|11|w|/orphan",
	)
	result := Filter(entries, Options{RootPID: 10})
	if got := render(t, result.Entries, Rewrite{}); got != "r|/root\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRewriteAllOccurrences(t *testing.T) {
	entries := parse(t, "[INFO] -> 1: 10|1|m|/usr/src/dockermount/a|/usr/src/dockermount/b")
	rewrite := Rewrite{From: "/usr/src/dockermount", To: "/home/dev/mnt"}
	if got, want := render(t, entries, rewrite), "m|/home/dev/mnt/a|/home/dev/mnt/b\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// sweepFilter is the historical repeated-pass formulation: sweep the
// log accepting entries until a sweep accepts nothing new.
func sweepFilter(entries []tracelog.Entry, options Options) []tracelog.Entry {
	lineage := Set{options.RootPID: {}}
	var pending []tracelog.Entry
	for _, entry := range entries {
		if entry.Timestamp >= options.Since {
			pending = append(pending, entry)
		}
	}
	var accepted []tracelog.Entry
	for {
		var remaining []tracelog.Entry
		for _, entry := range pending {
			if entry.PID == options.RootPID || lineage.Contains(entry.PPID) {
				lineage[entry.PID] = struct{}{}
				accepted = append(accepted, entry)
			} else {
				remaining = append(remaining, entry)
			}
		}
		if len(remaining) == len(pending) {
			break
		}
		pending = remaining
	}
	var kept []tracelog.Entry
	for _, entry := range accepted {
		if options.Ops.Allows(entry.Op) {
			kept = append(kept, entry)
		}
	}
	slices.SortFunc(kept, func(a, b tracelog.Entry) int {
		return int(a.Order) - int(b.Order)
	})
	return kept
}

func randomLog(random *rand.Rand, size int) []tracelog.Entry {
	ops := []tracelog.Op{tracelog.OpRead, tracelog.OpWrite, tracelog.OpDelete, tracelog.OpMove}
	entries := make([]tracelog.Entry, size)
	for index := range entries {
		pid := uint32(10 + random.IntN(40))
		entries[index] = tracelog.Entry{
			Timestamp: int64(random.IntN(100)),
			PID:       pid,
			PPID:      uint32(5 + random.IntN(45)),
			Op:        ops[random.IntN(len(ops))],
			Path:      fmt.Sprintf("/p/%d", index),
			Order:     uint64(index + 1),
		}
	}
	return entries
}

func TestFilterMatchesSweep(t *testing.T) {
	random := rand.New(rand.NewPCG(1, 2))
	for trial := range 200 {
		entries := randomLog(random, 5+random.IntN(120))
		options := Options{
			RootPID: uint32(10 + random.IntN(40)),
			Since:   int64(random.IntN(50)),
		}
		if trial%3 == 0 {
			options.Ops = tracelog.NewOpSet(tracelog.OpWrite, tracelog.OpRead)
		}

		got := Filter(entries, options).Entries
		want := sweepFilter(entries, options)
		if !slices.Equal(got, want) {
			t.Fatalf("trial %d (root %d since %d): worklist kept %d entries, sweep kept %d",
				trial, options.RootPID, options.Since, len(got), len(want))
		}
	}
}

func TestFilterIndependentOfInputPermutation(t *testing.T) {
	random := rand.New(rand.NewPCG(3, 4))
	entries := randomLog(random, 150)
	options := Options{RootPID: 12, Since: 10}
	want := Filter(entries, options)

	for range 20 {
		shuffled := slices.Clone(entries)
		random.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Filter(shuffled, options)
		if !slices.Equal(got.Entries, want.Entries) {
			t.Fatal("kept entries depend on input order")
		}
		if !slices.Equal(got.Lineage.Sorted(), want.Lineage.Sorted()) {
			t.Fatal("lineage depends on input order")
		}
	}
}

func TestFilterDeterministicOutput(t *testing.T) {
	random := rand.New(rand.NewPCG(5, 6))
	entries := randomLog(random, 300)
	options := Options{RootPID: 15, Since: 20}
	first := render(t, Filter(entries, options).Entries, Rewrite{})
	for range 5 {
		if again := render(t, Filter(entries, options).Entries, Rewrite{}); again != first {
			t.Fatal("output differs between runs")
		}
	}
}

func TestFilterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracer.log")
	content := "[INFO] -> 200: 10|1|w|/a/b.txt\n[DEBUG] noise\n[INFO] -> 200: 99|1|w|/z\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	result, log, err := FilterFile(path, Options{RootPID: 10, Since: 150})
	if err != nil {
		t.Fatalf("FilterFile: %v", err)
	}
	if log.Skipped != 1 || len(result.Entries) != 1 {
		t.Errorf("skipped=%d kept=%d, want 1 and 1", log.Skipped, len(result.Entries))
	}

	if _, _, err := FilterFile(filepath.Join(t.TempDir(), "absent.log"), Options{}); err == nil {
		t.Error("FilterFile succeeded for a missing log")
	}
}
