// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// linePattern is the trace line grammar. The ppid column accepts only
// digits, so records emitted with an unresolved parent are rejected.
var linePattern = regexp.MustCompile(`^\[INFO\] -> (\d+): (\d+)\|(\d+)\|([a-z])\|(.*)$`)

// maxLineLength bounds a single log line. Paths are limited by
// PATH_MAX, and a move carries two of them.
const maxLineLength = 1 << 20

// Entry is one parsed trace record.
type Entry struct {
	Timestamp int64
	PID       uint32
	PPID      uint32
	Op        Op

	// Path holds everything after the op column. For moves this is
	// "source|destination".
	Path string

	// Order is the entry's position among accepted lines, starting at
	// 1. It is independent of Timestamp and is the only valid key for
	// restoring log order.
	Order uint64
}

// Log is the result of parsing a trace log.
type Log struct {
	Entries []Entry

	// Skipped counts non-empty lines that did not match the grammar.
	Skipped int
}

// ParseLine parses one log line. The returned entry has no Order.
func ParseLine(line string) (Entry, bool) {
	match := linePattern.FindStringSubmatch(line)
	if match == nil {
		return Entry{}, false
	}
	timestamp, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	pid, err := strconv.ParseUint(match[2], 10, 32)
	if err != nil {
		return Entry{}, false
	}
	ppid, err := strconv.ParseUint(match[3], 10, 32)
	if err != nil {
		return Entry{}, false
	}
	op := Op(match[4][0])
	if !op.Valid() {
		return Entry{}, false
	}
	return Entry{
		Timestamp: timestamp,
		PID:       uint32(pid),
		PPID:      uint32(ppid),
		Op:        op,
		Path:      match[5],
	}, true
}

// Parse reads every line of r. Accepted entries are numbered from 1 in
// the order they appear. A line longer than maxLineLength is counted in
// Skipped and parsing resumes at the next line.
func Parse(r io.Reader) (*Log, error) {
	log := &Log{}
	reader := bufio.NewReaderSize(r, 64*1024)

	var (
		order    uint64
		line     []byte
		overlong bool
	)
	for {
		chunk, err := reader.ReadSlice('\n')
		if !overlong {
			if len(line)+len(chunk) > maxLineLength+1 {
				overlong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return log, fmt.Errorf("reading trace log: %w", err)
		}

		endOfInput := err != nil
		if overlong {
			log.Skipped++
		} else if len(line) > 0 {
			text := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")
			if entry, ok := ParseLine(text); ok {
				order++
				entry.Order = order
				log.Entries = append(log.Entries, entry)
			} else if text != "" {
				log.Skipped++
			}
		}
		line = line[:0]
		overlong = false
		if endOfInput {
			return log, nil
		}
	}
}

// ParseFile opens path with Open and parses it.
func ParseFile(path string) (*Log, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	log, err := Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return log, nil
}
