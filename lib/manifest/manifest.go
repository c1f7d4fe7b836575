// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/cairn-build/cairn/lib/lineage"
	"github.com/cairn-build/cairn/lib/tracelog"
	"github.com/zeebo/blake3"
)

// File is one input or output of a build step.
type File struct {
	Path string `cbor:"path" yaml:"path"`

	// Digest is the hex BLAKE3-256 of the contents. Empty for
	// directories, symlinks, and files that no longer exist.
	Digest string `cbor:"digest,omitempty" yaml:"digest,omitempty"`

	Size int64 `cbor:"size" yaml:"size"`

	// Missing is set when the path no longer exists.
	Missing bool `cbor:"missing,omitempty" yaml:"missing,omitempty"`
}

// Move records one rename.
type Move struct {
	From string `cbor:"from" yaml:"from"`
	To   string `cbor:"to" yaml:"to"`
}

// Manifest is the dependency summary of one build step. Every list is
// in first-seen trace order.
type Manifest struct {
	Inputs  []File   `cbor:"inputs" yaml:"inputs"`
	Outputs []File   `cbor:"outputs" yaml:"outputs"`
	Deleted []string `cbor:"deleted,omitempty" yaml:"deleted,omitempty"`
	Moves   []Move   `cbor:"moves,omitempty" yaml:"moves,omitempty"`
}

// Options configures Build.
type Options struct {
	// SkipDigests leaves File.Digest, Size, and Missing unset, so
	// Build does not touch the filesystem.
	SkipDigests bool
}

// orderedSet keeps insertion order and supports removal.
type orderedSet struct {
	index map[string]int
	items []string
	live  []bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]int)}
}

func (s *orderedSet) add(item string) {
	if position, ok := s.index[item]; ok {
		s.live[position] = true
		return
	}
	s.index[item] = len(s.items)
	s.items = append(s.items, item)
	s.live = append(s.live, true)
}

func (s *orderedSet) remove(item string) bool {
	position, ok := s.index[item]
	if !ok || !s.live[position] {
		return false
	}
	s.live[position] = false
	return true
}

func (s *orderedSet) list() []string {
	var items []string
	for position, item := range s.items {
		if s.live[position] {
			items = append(items, item)
		}
	}
	return items
}

// splitPaths splits a two-path event ("old|new"). Single-path events
// return the path twice.
func splitPaths(path string) (string, string) {
	first, second, found := strings.Cut(path, "|")
	if !found {
		return path, path
	}
	return first, second
}

// Build folds events in order into a manifest.
//
// A read marks an input unless the step produced the path earlier. A
// write marks an output; a link ("existing|new") marks the new name.
// A delete drops a produced output and records the deletion. A move
// carries an output to its new name and records the move; moving a
// file the step did not produce makes the destination an output.
// Queries and time changes do not affect the manifest.
func Build(events []lineage.Event, options Options) (*Manifest, error) {
	inputs := newOrderedSet()
	outputs := newOrderedSet()
	deleted := newOrderedSet()
	produced := make(map[string]bool)
	var moves []Move

	for _, event := range events {
		if len(event.Op) != 1 {
			return nil, fmt.Errorf("malformed op %q for %s", event.Op, event.Path)
		}
		switch tracelog.Op(event.Op[0]) {
		case tracelog.OpRead:
			if !produced[event.Path] {
				inputs.add(event.Path)
			}
		case tracelog.OpWrite:
			_, target := splitPaths(event.Path)
			outputs.add(target)
			produced[target] = true
			deleted.remove(target)
		case tracelog.OpDelete:
			outputs.remove(event.Path)
			deleted.add(event.Path)
		case tracelog.OpMove:
			from, to := splitPaths(event.Path)
			outputs.remove(from)
			outputs.add(to)
			produced[to] = true
			deleted.remove(to)
			moves = append(moves, Move{From: from, To: to})
		case tracelog.OpQuery, tracelog.OpTouch:
		default:
			return nil, fmt.Errorf("unknown op %q for %s", event.Op, event.Path)
		}
	}

	manifest := &Manifest{
		Deleted: deleted.list(),
		Moves:   moves,
	}
	for _, path := range inputs.list() {
		file, err := describe(path, options)
		if err != nil {
			return nil, err
		}
		manifest.Inputs = append(manifest.Inputs, file)
	}
	for _, path := range outputs.list() {
		file, err := describe(path, options)
		if err != nil {
			return nil, err
		}
		manifest.Outputs = append(manifest.Outputs, file)
	}
	return manifest, nil
}

func describe(path string, options Options) (File, error) {
	file := File{Path: path}
	if options.SkipDigests {
		return file, nil
	}
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		file.Missing = true
		return file, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("describing %s: %w", path, err)
	}
	file.Size = info.Size()
	if !info.Mode().IsRegular() {
		return file, nil
	}
	digest, err := Digest(path)
	if err != nil {
		return File{}, err
	}
	file.Digest = digest
	return file, nil
}

// Digest returns the hex BLAKE3-256 of the file at path.
func Digest(path string) (string, error) {
	source, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer source.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, source); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
