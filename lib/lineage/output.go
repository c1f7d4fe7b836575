// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cairn-build/cairn/lib/codec"
	"github.com/cairn-build/cairn/lib/tracelog"
)

// Rewrite replaces a path prefix seen by the traced process with the
// path the caller sees. Inside the build container the mount lives at
// the sandbox path; on the host it is the mount directory.
type Rewrite struct {
	From string
	To   string
}

// Apply replaces every occurrence of From in path with To. A move
// record carries two paths and both are rewritten.
func (r Rewrite) Apply(path string) string {
	if r.From == "" {
		return path
	}
	return strings.ReplaceAll(path, r.From, r.To)
}

// Format selects the encoding of filtered output.
type Format string

const (
	// FormatText writes one "op|path" line per entry.
	FormatText Format = "text"

	// FormatCBOR writes a CBOR array of Event values.
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatText, FormatCBOR:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: text, cbor)", name)
	}
}

// Event is the exported form of a kept entry.
type Event struct {
	Op        string `cbor:"op"`
	Path      string `cbor:"path"`
	PID       uint32 `cbor:"pid"`
	PPID      uint32 `cbor:"ppid"`
	Timestamp int64  `cbor:"timestamp"`
}

// Events converts entries to their exported form with rewrite applied.
func Events(entries []tracelog.Entry, rewrite Rewrite) []Event {
	events := make([]Event, len(entries))
	for index, entry := range entries {
		events[index] = Event{
			Op:        entry.Op.String(),
			Path:      rewrite.Apply(entry.Path),
			PID:       entry.PID,
			PPID:      entry.PPID,
			Timestamp: entry.Timestamp,
		}
	}
	return events
}

// Write encodes entries to w in the given format.
func Write(w io.Writer, entries []tracelog.Entry, rewrite Rewrite, format Format) error {
	switch format {
	case FormatText, "":
		return WriteText(w, entries, rewrite)
	case FormatCBOR:
		return codec.NewEncoder(w).Encode(Events(entries, rewrite))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteText writes one "op|path" line per entry.
func WriteText(w io.Writer, entries []tracelog.Entry, rewrite Rewrite) error {
	buffered := bufio.NewWriter(w)
	for _, entry := range entries {
		buffered.WriteByte(byte(entry.Op))
		buffered.WriteByte('|')
		buffered.WriteString(rewrite.Apply(entry.Path))
		buffered.WriteByte('\n')
	}
	return buffered.Flush()
}

// ReadText parses output written by WriteText. Blank lines are
// ignored; any other line must be "op|path" with a known op.
func ReadText(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		letter, path, found := strings.Cut(line, "|")
		if !found || len(letter) != 1 || !tracelog.Op(letter[0]).Valid() {
			return nil, fmt.Errorf("line %d: malformed trace entry %q", lineNumber, line)
		}
		events = append(events, Event{Op: letter, Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading filtered trace: %w", err)
	}
	return events, nil
}
