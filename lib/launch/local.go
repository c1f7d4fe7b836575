// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Local runs build commands under a shell on this host. The shell's
// own pid is printed after the command, so the shell roots the traced
// process tree.
type Local struct {
	// Dir is the directory the command runs in, normally inside the
	// traced mount.
	Dir string

	// Shell is the shell binary. Defaults to /bin/sh.
	Shell string

	// Logger receives launch progress. If nil, only errors are
	// logged, to stderr.
	Logger *slog.Logger
}

var _ Launcher = (*Local)(nil)

// shellScript returns the script the shell runs for command. It preserves
// the command's exit status.
func shellScript(command []string) string {
	return strings.Join(command, " ") + "\nstatus=$?\necho $$\nexit $status"
}

// Launch runs command and waits for it to exit.
func (l *Local) Launch(ctx context.Context, command []string, stdio IO) (Result, error) {
	if len(command) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", ErrLaunchFailed)
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	shell := l.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", shellScript(command))
	cmd.Dir = l.Dir
	cmd.Stderr = stdio.stderr()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: starting %s: %v", ErrLaunchFailed, shell, err)
	}
	logger.Debug("build command started", "shell_pid", cmd.Process.Pid, "dir", l.Dir)

	last, streamErr := StreamOutput(stdout, stdio.stdout())
	waitErr := cmd.Wait()

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{}, fmt.Errorf("%w: waiting for command: %v", ErrLaunchFailed, waitErr)
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		exitCode = exitErr.ExitCode()
	}
	if streamErr != nil {
		return Result{ExitCode: exitCode}, streamErr
	}

	pid, err := ParseRootPID(last)
	if err != nil {
		return Result{ExitCode: exitCode}, err
	}
	logger.Info("build command finished", "root_pid", pid, "exit_code", exitCode)
	return Result{RootPID: pid, ExitCode: exitCode}, nil
}
