// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
	"github.com/cairn-build/cairn/cmd/cairn/filter"
	"github.com/cairn-build/cairn/lib/clock"
	"github.com/cairn-build/cairn/lib/config"
	"github.com/cairn-build/cairn/lib/launch"
	"github.com/cairn-build/cairn/lib/lineage"
)

type runParams struct {
	options  string
	output   string
	manifest string
	format   string
	local    bool
	debug    bool
}

// Command returns the "run" command.
func Command() *cli.Command {
	var params runParams

	return &cli.Command{
		Name:    "run",
		Summary: "Run a build command and record the files it touched",
		Description: `Run one build command against the traced mount and write the file
operations its process tree performed.

The start time is recorded before launch. The command runs in the build
container through command_wrapper.sh (or under a local shell with
--local), which prints the command's pid as its final line. After the
command exits, the trace log at $CAIRN_MNT_DIR/<log_file> is filtered to
that pid's descendants and written to --output as "op|path" lines, with
the container's sandbox mount prefix rewritten to $CAIRN_MNT_DIR.

The trace is written even when the command fails; cairn then exits with
the command's status.`,
		Usage: "cairn run [flags] -- <command> [args...]",
		Examples: []cli.Example{
			{
				Description: "Record reads and writes of a make step",
				Command:     "cairn run --options rw --output deps.txt -- make -C src",
			},
			{
				Description: "Also write a dependency manifest with content digests",
				Command:     "cairn run --output deps.txt --manifest deps.yaml -- ninja",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.SetInterspersed(false)
			flagSet.StringVar(&params.options, "options", "", "op letters to keep (default from config; empty keeps all)")
			flagSet.StringVarP(&params.output, "output", "o", "", "output file (- for stdout; empty skips)")
			flagSet.StringVar(&params.manifest, "manifest", "", "write a dependency manifest (.cbor, .yaml)")
			flagSet.StringVar(&params.format, "format", string(lineage.FormatText), "output format: text or cbor")
			flagSet.BoolVar(&params.local, "local", false, "run under a local shell instead of docker exec")
			flagSet.BoolVar(&params.debug, "debug", false, "enable debug logging")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("no command given\n\nUsage: cairn run [flags] -- <command> [args...]")
			}
			logger := cli.NewCommandLogger(params.debug).With("command", "run")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if params.local {
				cfg.Launcher = config.LauncherLocal
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			mountDir, err := cfg.RequireMountDir()
			if err != nil {
				return err
			}

			launcher, closeLauncher, err := newLauncher(cfg, mountDir, logger)
			if err != nil {
				return err
			}
			defer closeLauncher()

			return execute(ctx, clock.Real(), cfg, launcher, args, params, launch.IO{Stdout: os.Stdout, Stderr: os.Stderr}, logger)
		},
	}
}

func newLauncher(cfg *config.Config, mountDir string, logger *slog.Logger) (launch.Launcher, func(), error) {
	if cfg.Launcher == config.LauncherLocal {
		return &launch.Local{
			Dir:    filepath.Join(mountDir, cfg.WorkDir),
			Logger: logger,
		}, func() {}, nil
	}

	client, err := launch.NewDockerClient()
	if err != nil {
		return nil, nil, err
	}
	return &launch.DockerExec{
		Client:     client,
		Container:  cfg.Container,
		ChrootDir:  cfg.ChrootDir,
		WorkDir:    cfg.WorkDir,
		HostPrefix: mountDir,
		Logger:     logger,
	}, func() { client.Close() }, nil
}

// execute launches command, then filters the trace from the launch
// time read from clk onward. A non-zero command status becomes an
// ExitError after the output is written.
func execute(ctx context.Context, clk clock.Clock, cfg *config.Config, launcher launch.Launcher, command []string, params runParams, stdio launch.IO, logger *slog.Logger) error {
	format, err := lineage.ParseFormat(params.format)
	if err != nil {
		return err
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	options := params.options
	if options == "" {
		options = cfg.Options
	}

	since := clk.Now().Unix()
	result, err := launcher.Launch(ctx, command, stdio)
	if err != nil {
		return err
	}

	pipeline := &filter.Pipeline{
		LogPath:  logPath,
		RootPID:  result.RootPID,
		Since:    since,
		Options:  options,
		Output:   params.output,
		Format:   format,
		Rewrite:  lineage.Rewrite{From: cfg.SandboxMount, To: cfg.MountDir},
		Manifest: params.manifest,
		Stdout:   stdio.Stdout,
		Logger:   logger,
	}
	summary, err := pipeline.Run()
	if err != nil {
		return err
	}
	logger.Info("trace filtered",
		"root_pid", result.RootPID,
		"entries", summary.Entries,
		"processes", summary.Lineage,
		"output", params.output,
	)

	if result.ExitCode != 0 {
		return &cli.ExitError{Code: result.ExitCode}
	}
	return nil
}
