// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cairn-build/cairn/lib/lineage"
	"github.com/cairn-build/cairn/lib/manifest"
	"github.com/cairn-build/cairn/lib/tracelog"
)

// Pipeline filters one trace log and writes its outputs.
type Pipeline struct {
	// LogPath is the trace log. Archived logs (.zst, .lz4) are read
	// transparently.
	LogPath string

	RootPID uint32
	Since   int64

	// Options is the op letter set, e.g. "rw". Empty keeps every op.
	Options string

	// Output is where filtered entries are written. "-" is stdout;
	// empty skips the output.
	Output string
	Format lineage.Format

	Rewrite lineage.Rewrite

	// Manifest, when set, receives a dependency manifest built from
	// the filtered entries.
	Manifest string

	// Stdout replaces os.Stdout for Output "-".
	Stdout io.Writer

	Logger *slog.Logger
}

// Summary reports what a Pipeline run kept.
type Summary struct {
	Entries int
	Skipped int
	Lineage int
}

// Run parses, filters, and writes. Nothing is written when the log
// cannot be read or the op set is invalid.
func (p *Pipeline) Run() (Summary, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ops, err := tracelog.ParseOpSet(p.Options)
	if err != nil {
		return Summary{}, err
	}
	format := p.Format
	if format == "" {
		format = lineage.FormatText
	}

	result, log, err := lineage.FilterFile(p.LogPath, lineage.Options{
		RootPID: p.RootPID,
		Since:   p.Since,
		Ops:     ops,
	})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Entries: len(result.Entries),
		Skipped: log.Skipped,
		Lineage: len(result.Lineage),
	}
	if log.Skipped > 0 {
		logger.Warn("skipped malformed trace lines", "log", p.LogPath, "count", log.Skipped)
	}
	logger.Debug("filtered trace",
		"log", p.LogPath,
		"root_pid", p.RootPID,
		"since", p.Since,
		"ops", ops.String(),
		"entries", summary.Entries,
		"lineage", result.Lineage.Sorted(),
	)

	if err := p.writeOutput(result.Entries, format); err != nil {
		return summary, err
	}

	if p.Manifest != "" {
		built, err := manifest.Build(lineage.Events(result.Entries, p.Rewrite), manifest.Options{})
		if err != nil {
			return summary, err
		}
		if err := manifest.Write(p.Manifest, built); err != nil {
			return summary, err
		}
		logger.Info("wrote manifest",
			"path", p.Manifest,
			"inputs", len(built.Inputs),
			"outputs", len(built.Outputs),
		)
	}
	return summary, nil
}

func (p *Pipeline) writeOutput(entries []tracelog.Entry, format lineage.Format) error {
	switch p.Output {
	case "":
		return nil
	case "-":
		stdout := p.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		return lineage.Write(stdout, entries, p.Rewrite, format)
	}

	file, err := os.Create(p.Output)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	err = lineage.Write(file, entries, p.Rewrite, format)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", p.Output, err)
	}
	return nil
}
