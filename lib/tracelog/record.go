// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"strconv"
	"strings"
)

// UnknownParent is logged as the ppid when the parent could not be
// resolved.
const UnknownParent int64 = -1

// Record is one trace event as emitted.
type Record struct {
	// Timestamp is in whole unix seconds.
	Timestamp int64
	PID       uint32
	PPID      int64
	Op        Op
	Paths     []string
}

// AppendLine appends the record's log line, including the trailing
// newline, to buffer.
func (r Record) AppendLine(buffer []byte) []byte {
	buffer = append(buffer, "[INFO] -> "...)
	buffer = strconv.AppendInt(buffer, r.Timestamp, 10)
	buffer = append(buffer, ": "...)
	buffer = strconv.AppendUint(buffer, uint64(r.PID), 10)
	buffer = append(buffer, '|')
	buffer = strconv.AppendInt(buffer, r.PPID, 10)
	buffer = append(buffer, '|', byte(r.Op), '|')
	buffer = append(buffer, strings.Join(r.Paths, "|")...)
	return append(buffer, '\n')
}

// Line returns the record's log line without the trailing newline.
func (r Record) Line() string {
	line := r.AppendLine(nil)
	return string(line[:len(line)-1])
}
