// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"bufio"
	"context"
	"errors"
	"net"
	"slices"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// fakeExec serves one exec whose multiplexed output is stdout and
// stderr.
type fakeExec struct {
	stdout    string
	stderr    string
	exitCode  int
	createErr error

	container string
	options   container.ExecOptions
}

func (f *fakeExec) ContainerExecCreate(ctx context.Context, name string, options container.ExecOptions) (container.ExecCreateResponse, error) {
	f.container = name
	f.options = options
	if f.createErr != nil {
		return container.ExecCreateResponse{}, f.createErr
	}
	return container.ExecCreateResponse{ID: "exec-1"}, nil
}

func (f *fakeExec) ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error) {
	server, client := net.Pipe()
	go func() {
		defer server.Close()
		if f.stderr != "" {
			stdcopy.NewStdWriter(server, stdcopy.Stderr).Write([]byte(f.stderr))
		}
		stdcopy.NewStdWriter(server, stdcopy.Stdout).Write([]byte(f.stdout))
	}()
	return types.HijackedResponse{Conn: client, Reader: bufio.NewReader(client)}, nil
}

func (f *fakeExec) ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error) {
	return container.ExecInspect{ExecID: execID, ExitCode: f.exitCode}, nil
}

func TestDockerExecLaunch(t *testing.T) {
	fake := &fakeExec{
		stdout:   "building\ndone\n321\n",
		stderr:   "warning: unused\n",
		exitCode: 2,
	}
	launcher := &DockerExec{
		Client:     fake,
		Container:  "build-env",
		ChrootDir:  "/usr/src/fusemount",
		HostPrefix: "/srv/mnt",
	}

	var stdout, stderr strings.Builder
	result, err := launcher.Launch(context.Background(), []string{"make", "-C", "/srv/mnt/app"}, IO{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if result.RootPID != 321 || result.ExitCode != 2 {
		t.Errorf("result = %+v, want pid 321 exit 2", result)
	}
	if stdout.String() != "building\ndone\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if stderr.String() != "warning: unused\n" {
		t.Errorf("stderr = %q", stderr.String())
	}

	if fake.container != "build-env" {
		t.Errorf("container = %q", fake.container)
	}
	wantCmd := []string{"/bin/bash", "-c", "./command_wrapper.sh /usr/src/fusemount make -C /app"}
	if !slices.Equal(fake.options.Cmd, wantCmd) {
		t.Errorf("Cmd = %q, want %q", fake.options.Cmd, wantCmd)
	}
	if !fake.options.AttachStdout || !fake.options.AttachStderr {
		t.Error("exec does not attach stdout and stderr")
	}
}

func TestDockerExecScriptWithWorkDir(t *testing.T) {
	launcher := &DockerExec{ChrootDir: "/usr/src/fusemount", WorkDir: "project"}
	got := launcher.Script([]string{"ninja"})
	if want := "./command_wrapper.sh /usr/src/fusemount project ninja"; got != want {
		t.Errorf("Script = %q, want %q", got, want)
	}
}

func TestDockerExecMissingPID(t *testing.T) {
	launcher := &DockerExec{Client: &fakeExec{stdout: "built\nall done\n"}, Container: "build-env"}
	_, err := launcher.Launch(context.Background(), []string{"make"}, IO{})
	if !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("error = %v, want ErrLaunchFailed", err)
	}
}

func TestDockerExecMissingContainer(t *testing.T) {
	fake := &fakeExec{createErr: errdefs.ErrNotFound}
	launcher := &DockerExec{Client: fake, Container: "absent"}
	_, err := launcher.Launch(context.Background(), []string{"make"}, IO{})
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("error = %v, want ErrLaunchFailed", err)
	}
	if !strings.Contains(err.Error(), "absent") {
		t.Errorf("error %q does not name the container", err)
	}
}
