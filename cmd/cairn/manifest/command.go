// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest implements "cairn manifest", which turns a filtered
// trace into a dependency manifest.
package manifest

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
	"github.com/cairn-build/cairn/lib/lineage"
	libmanifest "github.com/cairn-build/cairn/lib/manifest"
)

// Command returns the "manifest" command.
func Command() *cli.Command {
	var (
		tracePath   string
		output      string
		skipDigests bool
		debug       bool
	)

	return &cli.Command{
		Name:    "manifest",
		Summary: "Build a dependency manifest from a filtered trace",
		Description: `Read "op|path" lines written by "cairn run" or "cairn filter" and
fold them into the build step's inputs, outputs, deletions and moves.
Files that still exist are described with their size and BLAKE3-256
digest. The manifest is CBOR unless --output ends in .yaml or .yml.`,
		Usage: "cairn manifest --trace FILE --output FILE",
		Examples: []cli.Example{
			{
				Description: "Summarize a recorded step as YAML",
				Command:     "cairn manifest --trace deps.txt --output deps.yaml",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("manifest", pflag.ContinueOnError)
			flagSet.StringVar(&tracePath, "trace", "", "filtered trace file")
			flagSet.StringVarP(&output, "output", "o", "", "manifest path (.cbor, .yaml)")
			flagSet.BoolVar(&skipDigests, "skip-digests", false, "list paths without sizes or digests")
			flagSet.BoolVar(&debug, "debug", false, "enable debug logging")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if tracePath == "" || output == "" {
				return fmt.Errorf("--trace and --output are required")
			}
			logger := cli.NewCommandLogger(debug).With("command", "manifest")

			file, err := os.Open(tracePath)
			if err != nil {
				return fmt.Errorf("opening trace: %w", err)
			}
			events, err := lineage.ReadText(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", tracePath, err)
			}

			built, err := libmanifest.Build(events, libmanifest.Options{SkipDigests: skipDigests})
			if err != nil {
				return err
			}
			if err := libmanifest.Write(output, built); err != nil {
				return err
			}
			logger.Info("wrote manifest",
				"path", output,
				"events", len(events),
				"inputs", len(built.Inputs),
				"outputs", len(built.Outputs),
				"deleted", len(built.Deleted),
				"moves", len(built.Moves),
			)
			return nil
		},
	}
}
