// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"golang.org/x/sync/errgroup"
)

// ExecAPI is the part of the Docker client DockerExec uses.
// *client.Client implements it.
type ExecAPI interface {
	ContainerExecCreate(ctx context.Context, container string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
}

var _ ExecAPI = (*client.Client)(nil)

// NewDockerClient connects to the Docker daemon named by the
// environment (DOCKER_HOST and friends).
func NewDockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return cli, nil
}

// DockerExec runs build commands in a long-lived build container. The
// container's command_wrapper.sh enters ChrootDir, runs the command,
// and prints the command's pid last.
type DockerExec struct {
	// Client talks to the Docker daemon. Required.
	Client ExecAPI

	// Container is the name or id of the build container. Required.
	Container string

	// ChrootDir is the traced mount as seen inside the container.
	ChrootDir string

	// WorkDir, when set, is passed to the wrapper as the directory to
	// run the command in, relative to ChrootDir.
	WorkDir string

	// HostPrefix is trimmed from the front of every command word.
	HostPrefix string

	// Logger receives launch progress. If nil, only errors are
	// logged, to stderr.
	Logger *slog.Logger
}

var _ Launcher = (*DockerExec)(nil)

// Script returns the shell script the build container runs for
// command.
func (d *DockerExec) Script(command []string) string {
	parts := []string{"./command_wrapper.sh", d.ChrootDir}
	if d.WorkDir != "" {
		parts = append(parts, d.WorkDir)
	}
	parts = append(parts, TrimHostPrefix(command, d.HostPrefix)...)
	return strings.Join(parts, " ")
}

// Launch runs command through the container's wrapper script and
// waits for it to exit. Output is demultiplexed: stdout is streamed
// through StreamOutput, stderr is copied verbatim.
func (d *DockerExec) Launch(ctx context.Context, command []string, stdio IO) (Result, error) {
	if len(command) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", ErrLaunchFailed)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	script := d.Script(command)
	created, err := d.Client.ContainerExecCreate(ctx, d.Container, container.ExecOptions{
		Cmd:          []string{"/bin/bash", "-c", script},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Result{}, fmt.Errorf("%w: build container %q not found", ErrLaunchFailed, d.Container)
		}
		return Result{}, fmt.Errorf("%w: creating exec in %s: %v", ErrLaunchFailed, d.Container, err)
	}
	logger.Debug("exec created", "container", d.Container, "exec", created.ID, "script", script)

	resp, err := d.Client.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return Result{}, fmt.Errorf("%w: attaching to exec: %v", ErrLaunchFailed, err)
	}
	defer resp.Close()

	// The hijacked connection does not observe ctx.
	stop := context.AfterFunc(ctx, resp.Close)
	defer stop()

	last, err := demux(ctx, resp.Reader, stdio)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}

	inspect, err := d.Client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return Result{}, fmt.Errorf("inspecting exec: %w", err)
	}
	pid, err := ParseRootPID(last)
	if err != nil {
		return Result{ExitCode: inspect.ExitCode}, err
	}
	logger.Info("build command finished",
		"container", d.Container,
		"root_pid", pid,
		"exit_code", inspect.ExitCode,
	)
	return Result{RootPID: pid, ExitCode: inspect.ExitCode}, nil
}

// demux splits a multiplexed exec stream. Stdout is piped through
// StreamOutput concurrently so the caller sees output as it arrives.
func demux(ctx context.Context, stream io.Reader, stdio IO) (string, error) {
	reader, writer := io.Pipe()
	var last string

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		_, err := stdcopy.StdCopy(writer, stdio.stderr(), stream)
		writer.CloseWithError(err)
		if err != nil {
			return fmt.Errorf("reading exec output: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		last, err = StreamOutput(reader, stdio.stdout())
		reader.CloseWithError(err)
		return err
	})
	if err := group.Wait(); err != nil {
		return "", err
	}
	return last, nil
}
