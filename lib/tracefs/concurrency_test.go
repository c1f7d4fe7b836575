// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/cairn-build/cairn/lib/inode"
)

// TestConcurrentOperationsSeeWholeRecords runs mutating operations
// alongside readers. Every record a reader observes must describe one
// object at one path, and after the writers finish the table must
// agree with the backing store. Run with -race.
func TestConcurrentOperationsSeeWholeRecords(t *testing.T) {
	filesystem, _ := testFileSystem(t, map[string]string{
		"log.txt":  "",
		"b.txt":    "moving",
		"dir/keep": "kept",
	})
	root := filesystem.Root()
	logFile := lookup(t, filesystem, inode.RootID, "log.txt")
	moving := lookup(t, filesystem, inode.RootID, "b.txt")
	caller := owner(21)

	const (
		chunks    = 200
		chunkSize = 16
		renames   = 100
	)
	chunk := bytes.Repeat([]byte("x"), chunkSize)

	var writers, readers sync.WaitGroup
	stop := make(chan struct{})

	writers.Add(3)
	go func() {
		defer writers.Done()
		for index := range chunks {
			if _, err := filesystem.Write(logFile.ID, int64(index*chunkSize), chunk); err != nil {
				t.Errorf("Write: %v", err)
				return
			}
		}
	}()
	go func() {
		defer writers.Done()
		for index := range chunks {
			mode := uint32(0o644)
			if index%2 == 1 {
				mode = 0o600
			}
			if _, err := filesystem.SetAttr(caller, logFile.ID, SetAttr{Mode: &mode}); err != nil {
				t.Errorf("SetAttr: %v", err)
				return
			}
		}
	}()
	go func() {
		defer writers.Done()
		for index := range renames {
			from, to := "b.txt", "c.txt"
			if index%2 == 1 {
				from, to = to, from
			}
			if err := filesystem.Rename(caller, inode.RootID, from, inode.RootID, to, 0); err != nil {
				t.Errorf("Rename %s -> %s: %v", from, to, err)
				return
			}
		}
	}()

	readers.Add(3)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			record, err := filesystem.GetAttr(logFile.ID)
			if err != nil {
				t.Errorf("GetAttr: %v", err)
				return
			}
			if record.ID != logFile.ID || record.Kind != inode.KindFile ||
				record.RealPath != logFile.RealPath || record.Size%chunkSize != 0 ||
				(record.Perm != 0o644 && record.Perm != 0o600) {
				t.Errorf("inconsistent record: %+v", record)
				return
			}
		}
	}()
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, name := range []string{"b.txt", "c.txt"} {
				record, err := filesystem.Lookup(inode.RootID, name)
				if Errno(err) == syscall.ENOENT {
					continue
				}
				if err != nil {
					t.Errorf("Lookup(%s): %v", name, err)
					return
				}
				if record.ID != moving.ID || record.RealPath != filepath.Join(root, name) {
					t.Errorf("Lookup(%s) = %+v", name, record)
					return
				}
			}
			if record, err := filesystem.GetAttr(moving.ID); err != nil {
				t.Errorf("GetAttr(moving): %v", err)
				return
			} else if base := filepath.Base(record.RealPath); base != "b.txt" && base != "c.txt" {
				t.Errorf("moving record at %q", record.RealPath)
				return
			}
		}
	}()
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			data, err := filesystem.Read(moving.ID, 0, 64)
			if err != nil || string(data) != "moving" {
				t.Errorf("Read(moving) = %q, %v", data, err)
				return
			}
		}
	}()

	writers.Wait()
	close(stop)
	readers.Wait()

	record, err := filesystem.GetAttr(logFile.ID)
	if err != nil {
		t.Fatalf("GetAttr: %v", err)
	}
	info, err := os.Stat(logFile.RealPath)
	if err != nil {
		t.Fatal(err)
	}
	if record.Size != uint64(info.Size()) || info.Size() != chunks*chunkSize {
		t.Errorf("record size %d, backing size %d, want %d", record.Size, info.Size(), chunks*chunkSize)
	}
	if record.Perm != uint32(info.Mode().Perm()) {
		t.Errorf("record perm %#o, backing perm %#o", record.Perm, info.Mode().Perm())
	}
	final, err := filesystem.GetAttr(moving.ID)
	if err != nil {
		t.Fatalf("GetAttr(moving): %v", err)
	}
	if final.RealPath != filepath.Join(root, "b.txt") {
		t.Errorf("moving record ends at %q after an even number of renames", final.RealPath)
	}
	if native := nativeID(t, final.RealPath); native != moving.ID {
		t.Errorf("moving record points at inode %d", native)
	}
}
