// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
	"github.com/cairn-build/cairn/lib/lineage"
)

// Command returns the "filter" command.
func Command() *cli.Command {
	var (
		logPath     string
		rootPID     string
		since       int64
		options     string
		output      string
		format      string
		rewriteFrom string
		rewriteTo   string
		manifest    string
		debug       bool
	)

	return &cli.Command{
		Name:    "filter",
		Summary: "Filter a trace log to one build's process lineage",
		Description: `Read a trace log and keep the entries produced by the process tree
rooted at --root-pid since --since (unix seconds).

A process joins the lineage once an entry shows its parent is already
in it, and every entry it logged is kept. Entries are written in log
order as "op|path" lines, or as a CBOR array with --format cbor.

--options restricts output to the given op letters (r, w, d, m, q, t).
It only hides entries; processes whose entries are hidden still extend
the lineage.`,
		Usage: "cairn filter --log FILE --root-pid PID --since UNIX [flags]",
		Examples: []cli.Example{
			{
				Description: "Reads and writes of pid 4121 since a start time",
				Command:     "cairn filter --log $CAIRN_MNT_DIR/tracer.log --root-pid 4121 --since 1760745600 --options rw",
			},
			{
				Description: "Rewrite container paths and build a manifest",
				Command:     "cairn filter --log tracer.log --root-pid 4121 --since 0 --rewrite-from /usr/src/dockermount --rewrite-to $CAIRN_MNT_DIR --manifest deps.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("filter", pflag.ContinueOnError)
			flagSet.StringVar(&logPath, "log", "", "trace log to read (.zst and .lz4 archives are decompressed)")
			flagSet.StringVar(&rootPID, "root-pid", "", "pid of the build's top-level process")
			flagSet.Int64Var(&since, "since", 0, "build start time in unix seconds")
			flagSet.StringVar(&options, "options", "", "op letters to keep (empty keeps all)")
			flagSet.StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
			flagSet.StringVar(&format, "format", string(lineage.FormatText), "output format: text or cbor")
			flagSet.StringVar(&rewriteFrom, "rewrite-from", "", "path prefix to replace in output")
			flagSet.StringVar(&rewriteTo, "rewrite-to", "", "replacement for --rewrite-from")
			flagSet.StringVar(&manifest, "manifest", "", "write a dependency manifest (.cbor, .yaml)")
			flagSet.BoolVar(&debug, "debug", false, "enable debug logging")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if logPath == "" {
				return fmt.Errorf("--log is required")
			}
			if rootPID == "" {
				return fmt.Errorf("--root-pid is required")
			}
			pid, err := strconv.ParseUint(rootPID, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid --root-pid %q: %w", rootPID, err)
			}
			parsedFormat, err := lineage.ParseFormat(format)
			if err != nil {
				return err
			}

			pipeline := &Pipeline{
				LogPath:  logPath,
				RootPID:  uint32(pid),
				Since:    since,
				Options:  options,
				Output:   output,
				Format:   parsedFormat,
				Rewrite:  lineage.Rewrite{From: rewriteFrom, To: rewriteTo},
				Manifest: manifest,
				Logger:   cli.NewCommandLogger(debug).With("command", "filter"),
			}
			_, err = pipeline.Run()
			return err
		},
	}
}
