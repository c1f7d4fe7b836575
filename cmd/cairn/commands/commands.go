// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the cairn CLI command tree.
package commands

import (
	"context"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
	filtercmd "github.com/cairn-build/cairn/cmd/cairn/filter"
	"github.com/cairn-build/cairn/cmd/cairn/logcmd"
	manifestcmd "github.com/cairn-build/cairn/cmd/cairn/manifest"
	runcmd "github.com/cairn-build/cairn/cmd/cairn/run"
	"github.com/cairn-build/cairn/lib/version"
)

// Root builds and returns the complete cairn command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "cairn",
		Description: `Cairn: I/O tracing for forward build systems.

Runs build commands over a traced FUSE mount (served by cairn-fuse) and
reports which files each command's process tree read, wrote, deleted
and moved.`,
		Subcommands: []*cli.Command{
			runcmd.Command(),
			filtercmd.Command(),
			manifestcmd.Command(),
			logcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					version.Print("cairn")
					return nil
				},
			},
		},
	}
}
