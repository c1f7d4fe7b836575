// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package logcmd implements the "cairn log" command group for managing
// the trace log the daemon appends to.
package logcmd

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
	"github.com/cairn-build/cairn/lib/config"
	"github.com/cairn-build/cairn/lib/tracelog"
)

// Command returns the "log" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "log",
		Summary: "Manage the trace log",
		Description: `Manage the trace log written by cairn-fuse.

The daemon only ever appends, so a long-lived mount accumulates the
records of every build. Archive the log between builds to keep
filtering fast; "cairn filter" reads archives directly.`,
		Subcommands: []*cli.Command{
			archiveCommand(),
		},
	}
}

func archiveCommand() *cli.Command {
	var (
		logPath     string
		output      string
		compression string
		truncate    bool
		debug       bool
	)

	return &cli.Command{
		Name:    "archive",
		Summary: "Write a compressed copy of the trace log",
		Description: `Compress the trace log to --output. With --truncate the live log is
emptied afterwards; the daemon keeps appending to the same file. The
log is held under an exclusive flock from the copy through the
truncate, and the daemon waits on that lock before each record, so no
record is lost between the two.

--log defaults to the configured log under $CAIRN_MNT_DIR. --output
defaults to the log path plus the compression's extension.`,
		Usage: "cairn log archive [--log FILE] [--output FILE] [flags]",
		Examples: []cli.Example{
			{
				Description: "Archive and reset the live log",
				Command:     "cairn log archive --truncate",
			},
			{
				Description: "Archive a copied log with lz4",
				Command:     "cairn log archive --log build-42.log --compression lz4",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("archive", pflag.ContinueOnError)
			flagSet.StringVar(&logPath, "log", "", "trace log (default from config)")
			flagSet.StringVarP(&output, "output", "o", "", "archive path (default <log>.<ext>)")
			flagSet.StringVar(&compression, "compression", "zstd", "compression: zstd or lz4")
			flagSet.BoolVar(&truncate, "truncate", false, "empty the log after archiving")
			flagSet.BoolVar(&debug, "debug", false, "enable debug logging")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			logger := cli.NewCommandLogger(debug).With("command", "log archive")

			parsed, err := tracelog.ParseCompression(compression)
			if err != nil {
				return err
			}
			if logPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if logPath, err = cfg.LogPath(); err != nil {
					return err
				}
			}
			if output == "" {
				output = logPath + parsed.Extension()
			}

			written, err := tracelog.Archive(logPath, output, tracelog.ArchiveOptions{
				Compression: parsed,
				Truncate:    truncate,
			})
			if err != nil {
				return err
			}
			logger.Info("archived trace log",
				"log", logPath,
				"archive", output,
				"compression", parsed.String(),
				"bytes", written,
				"truncated", truncate,
			)
			return nil
		},
	}
}
