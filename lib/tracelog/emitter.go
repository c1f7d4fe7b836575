// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/cairn-build/cairn/lib/clock"
)

// EmitterOptions configures an Emitter.
type EmitterOptions struct {
	// Resolver maps a pid to its parent. If nil, ProcResolver{} is
	// used.
	Resolver ParentResolver

	// Clock stamps each record. If nil, defaults to clock.Real().
	Clock clock.Clock

	// Logger receives resolution and write failures. If nil, only
	// errors are logged, to stderr.
	Logger *slog.Logger
}

// Emitter appends trace records to a log.
//
// Each record is written with a single Write call under a mutex, so
// concurrent callers never interleave partial lines.
type Emitter struct {
	resolver ParentResolver
	clock    clock.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	out    io.Writer
	buffer []byte
}

// NewEmitter returns an emitter writing to out. For the production
// log, out is a file opened with O_APPEND.
func NewEmitter(out io.Writer, options EmitterOptions) *Emitter {
	if options.Resolver == nil {
		options.Resolver = ProcResolver{}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}
	return &Emitter{
		resolver: options.Resolver,
		clock:    options.Clock,
		logger:   options.Logger,
		out:      out,
	}
}

// Trace records that pid performed op on paths. Failures are logged
// and never reported to the caller: a filesystem operation that
// already succeeded must not fail because its trace could not be
// written.
func (e *Emitter) Trace(pid uint32, op Op, paths ...string) {
	ppid := UnknownParent
	if parent, err := e.resolver.ParentPID(pid); err != nil {
		e.logger.Debug("parent pid unresolved", "pid", pid, "error", err)
	} else {
		ppid = int64(parent)
	}

	record := Record{
		Timestamp: e.clock.Now().Unix(),
		PID:       pid,
		PPID:      ppid,
		Op:        op,
		Paths:     paths,
	}
	if err := e.Emit(record); err != nil {
		e.logger.Error("writing trace record", "op", op.String(), "pid", pid, "error", err)
	}
}

// Emit writes a fully formed record.
func (e *Emitter) Emit(record Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = record.AppendLine(e.buffer[:0])
	_, err := e.out.Write(e.buffer)
	return err
}
