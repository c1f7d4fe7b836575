// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Command cairn-fuse mounts a traced pass-through view of a directory.
// Every successful read, write, delete, move, query and time change is
// appended to the trace log with the calling process and its parent.
//
//	cairn-fuse [flags] <root> <mountpoint>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
	"github.com/cairn-build/cairn/lib/process"
	"github.com/cairn-build/cairn/lib/tracefs"
	"github.com/cairn-build/cairn/lib/tracelog"
	"github.com/cairn-build/cairn/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

type daemonFlags struct {
	logFile     string
	readyMarker string
	allowOther  bool
	debug       bool
	showVersion bool

	root       string
	mountpoint string
}

func parseFlags(args []string) (daemonFlags, error) {
	var flags daemonFlags
	flagSet := pflag.NewFlagSet("cairn-fuse", pflag.ContinueOnError)
	flagSet.StringVar(&flags.logFile, "log-file", "", "trace log, opened for append (default <root>/tracer.log)")
	flagSet.StringVar(&flags.readyMarker, "ready-marker", ".cairn-fuse-ready", "file created once the mount is serving (empty disables)")
	flagSet.BoolVar(&flags.allowOther, "allow-other", true, "let other users, including the build container, access the mount")
	flagSet.BoolVar(&flags.debug, "debug", false, "log every filesystem request")
	flagSet.BoolVar(&flags.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return flags, err
	}
	if flags.showVersion {
		return flags, nil
	}

	if flagSet.NArg() != 2 {
		return flags, errors.New("usage: cairn-fuse [flags] <root> <mountpoint>")
	}
	flags.root = flagSet.Arg(0)
	flags.mountpoint = flagSet.Arg(1)
	if flags.logFile == "" {
		flags.logFile = filepath.Join(flags.root, "tracer.log")
	}
	return flags, nil
}

func run(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	if flags.showVersion {
		version.Print("cairn-fuse")
		return nil
	}

	logger := cli.NewCommandLogger(flags.debug).With("component", "cairn-fuse")

	// Created files and directories get exactly the mode the kernel
	// asked for; the kernel has already applied the caller's umask.
	unix.Umask(0)

	logFile, err := os.OpenFile(flags.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trace log: %w", err)
	}
	defer logFile.Close()

	emitter := tracelog.NewEmitter(tracelog.NewLockedWriter(logFile), tracelog.EmitterOptions{Logger: logger})

	server, err := tracefs.Mount(tracefs.MountOptions{
		Root:        flags.root,
		Mountpoint:  flags.mountpoint,
		Tracer:      emitter,
		AllowOther:  flags.allowOther,
		ReadyMarker: flags.readyMarker,
		Debug:       flags.debug,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("starting",
		"version", version.Info(),
		"root", flags.root,
		"mountpoint", flags.mountpoint,
		"log_file", flags.logFile,
	)

	ctx, stop := process.SignalContext(context.Background())
	defer stop()
	return server.Serve(ctx)
}
