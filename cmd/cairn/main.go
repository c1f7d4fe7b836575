// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Command cairn runs build commands over a traced mount and filters
// the trace log down to each command's process tree.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cairn-build/cairn/cmd/cairn/commands"
	"github.com/cairn-build/cairn/lib/process"
)

func main() {
	if err := run(); err != nil {
		// "cairn run" returns an ExitError carrying the build command's
		// status; the command already reported its own failure.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := process.SignalContext(context.Background())
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
