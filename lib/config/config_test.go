// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Container != "build-env" {
		t.Errorf("expected container=build-env, got %s", cfg.Container)
	}
	if cfg.ChrootDir != "/usr/src/fusemount" {
		t.Errorf("expected chroot_dir=/usr/src/fusemount, got %s", cfg.ChrootDir)
	}
	if cfg.SandboxMount != "/usr/src/dockermount" {
		t.Errorf("expected sandbox_mount=/usr/src/dockermount, got %s", cfg.SandboxMount)
	}
	if cfg.LogFile != "tracer.log" {
		t.Errorf("expected log_file=tracer.log, got %s", cfg.LogFile)
	}
	if cfg.Launcher != LauncherDocker {
		t.Errorf("expected launcher=docker, got %s", cfg.Launcher)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_WithoutConfigFile(t *testing.T) {
	mountDir := t.TempDir()
	t.Setenv(ConfigEnv, "")
	t.Setenv(MountDirEnv, mountDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.MountDir != mountDir {
		t.Errorf("expected mount_dir=%s, got %s", mountDir, cfg.MountDir)
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		t.Fatalf("LogPath: %v", err)
	}
	if want := filepath.Join(mountDir, "tracer.log"); logPath != want {
		t.Errorf("expected log path %s, got %s", want, logPath)
	}
}

func TestLoad_MissingMountDir(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	t.Setenv(MountDirEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	_, err = cfg.LogPath()
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("expected ErrEnvironment, got %v", err)
	}
	if !strings.Contains(err.Error(), MountDirEnv) {
		t.Errorf("expected error to name %s, got %q", MountDirEnv, err)
	}
}

func TestRequireMountDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		mountDir string
		wantErr  string
	}{
		{name: "unset", mountDir: "", wantErr: "not set"},
		{name: "missing", mountDir: filepath.Join(dir, "missing"), wantErr: "no such file"},
		{name: "regular file", mountDir: file, wantErr: "not a directory"},
		{name: "directory", mountDir: dir},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.MountDir = test.mountDir
			got, err := cfg.RequireMountDir()
			if test.wantErr == "" {
				if err != nil || got != dir {
					t.Fatalf("RequireMountDir() = %q, %v", got, err)
				}
				return
			}
			if !errors.Is(err, ErrEnvironment) {
				t.Fatalf("expected ErrEnvironment, got %v", err)
			}
			if !strings.Contains(err.Error(), test.wantErr) || !strings.Contains(err.Error(), MountDirEnv) {
				t.Errorf("error %q should name %s and contain %q", err, MountDirEnv, test.wantErr)
			}
			if _, err := cfg.LogPath(); !errors.Is(err, ErrEnvironment) {
				t.Errorf("LogPath: expected ErrEnvironment, got %v", err)
			}
		})
	}
}

func TestLoadFile_YAML(t *testing.T) {
	t.Setenv(MountDirEnv, "")
	configPath := writeConfig(t, "cairn.yaml", `
mount_dir: /custom/mnt
container: toolchain
chroot_dir: /build/root
log_file: /var/log/trace.log
launcher: local
options: rw
work_dir: project
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.MountDir != "/custom/mnt" {
		t.Errorf("expected mount_dir=/custom/mnt, got %s", cfg.MountDir)
	}
	if cfg.Container != "toolchain" {
		t.Errorf("expected container=toolchain, got %s", cfg.Container)
	}
	if cfg.ChrootDir != "/build/root" {
		t.Errorf("expected chroot_dir=/build/root, got %s", cfg.ChrootDir)
	}
	if cfg.SandboxMount != "/usr/src/dockermount" {
		t.Errorf("expected default sandbox_mount to survive, got %s", cfg.SandboxMount)
	}
	if cfg.Launcher != LauncherLocal {
		t.Errorf("expected launcher=local, got %s", cfg.Launcher)
	}
	if cfg.Options != "rw" || cfg.WorkDir != "project" {
		t.Errorf("expected options=rw work_dir=project, got %s %s", cfg.Options, cfg.WorkDir)
	}

	logPath, err := cfg.LogPath()
	if err != nil || logPath != "/var/log/trace.log" {
		t.Errorf("expected absolute log path to be kept, got %s (%v)", logPath, err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	t.Setenv(MountDirEnv, "")
	configPath := writeConfig(t, "cairn.jsonc", `{
	// Build container used by CI.
	"container": "ci-env",
	"launcher": /* inline */ "docker",
	"mount_dir": "/ci/mnt",
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Container != "ci-env" {
		t.Errorf("expected container=ci-env, got %s", cfg.Container)
	}
	if cfg.MountDir != "/ci/mnt" {
		t.Errorf("expected mount_dir=/ci/mnt, got %s", cfg.MountDir)
	}
}

func TestMountDirEnvWinsOverFile(t *testing.T) {
	t.Setenv(MountDirEnv, "/env/mnt")
	configPath := writeConfig(t, "cairn.yaml", "mount_dir: /file/mnt\n")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.MountDir != "/env/mnt" {
		t.Errorf("expected mount_dir from environment, got %s", cfg.MountDir)
	}
}

func TestLoad_WithConfigEnv(t *testing.T) {
	t.Setenv(MountDirEnv, "")
	configPath := writeConfig(t, "cairn.yaml", "container: from-env-file\n")
	t.Setenv(ConfigEnv, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Container != "from-env-file" {
		t.Errorf("expected container=from-env-file, got %s", cfg.Container)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := writeConfig(t, "bad.yaml", "container: [unterminated\n")
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("HOME", "/home/builder")
	t.Setenv(MountDirEnv, "")
	t.Setenv("CAIRN_TEST_UNSET", "")
	configPath := writeConfig(t, "cairn.yaml", `
mount_dir: ${HOME}/mnt
log_file: ${CAIRN_MNT_DIR}/logs/trace.log
work_dir: ${CAIRN_TEST_UNSET:-src}
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.MountDir != "/home/builder/mnt" {
		t.Errorf("expected mount_dir=/home/builder/mnt, got %s", cfg.MountDir)
	}
	if cfg.LogFile != "/home/builder/mnt/logs/trace.log" {
		t.Errorf("expected log_file under mount dir, got %s", cfg.LogFile)
	}
	if cfg.WorkDir != "src" {
		t.Errorf("expected work_dir=src, got %s", cfg.WorkDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"unknown launcher", func(c *Config) { c.Launcher = "ssh" }, "launcher must be"},
		{"docker without container", func(c *Config) { c.Container = "" }, "container is required"},
		{"docker without chroot", func(c *Config) { c.ChrootDir = "" }, "chroot_dir is required"},
		{"no log file", func(c *Config) { c.LogFile = "" }, "log_file is required"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}

	local := Default()
	local.Launcher = LauncherLocal
	local.Container = ""
	if err := local.Validate(); err != nil {
		t.Errorf("local launcher should not need a container: %v", err)
	}
}
