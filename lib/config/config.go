// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrEnvironment reports that a required external input, such as the
// mount directory, is missing.
var ErrEnvironment = errors.New("environment error")

// Environment variables read by Load.
const (
	ConfigEnv   = "CAIRN_CONFIG"
	MountDirEnv = "CAIRN_MNT_DIR"
)

// LauncherKind selects how build commands are started.
type LauncherKind string

const (
	// LauncherDocker runs commands with docker exec in the build
	// container.
	LauncherDocker LauncherKind = "docker"
	// LauncherLocal runs commands under a shell on this host.
	LauncherLocal LauncherKind = "local"
)

// Config is the configuration shared by the cairn commands.
type Config struct {
	// MountDir is the traced mount directory on the host.
	MountDir string `yaml:"mount_dir"`

	// Container is the build container that runs commands.
	// Default: build-env
	Container string `yaml:"container"`

	// ChrootDir is the traced mount as seen inside the build
	// container.
	// Default: /usr/src/fusemount
	ChrootDir string `yaml:"chroot_dir"`

	// SandboxMount is the path prefix the daemon's backing root has
	// inside the container. Filtered paths are rewritten from it to
	// MountDir.
	// Default: /usr/src/dockermount
	SandboxMount string `yaml:"sandbox_mount"`

	// LogFile is the trace log, relative to MountDir unless absolute.
	// Default: tracer.log
	LogFile string `yaml:"log_file"`

	// Launcher selects docker exec or a local shell.
	// Default: docker
	Launcher LauncherKind `yaml:"launcher"`

	// Options is the default op filter, e.g. "rw". Empty keeps all
	// operations.
	Options string `yaml:"options"`

	// WorkDir is the directory, relative to the chroot, that commands
	// run in. Empty runs them where the wrapper starts.
	WorkDir string `yaml:"work_dir"`
}

// Default returns the default configuration. Load and LoadFile start
// from it before reading the file.
func Default() *Config {
	return &Config{
		Container:    "build-env",
		ChrootDir:    "/usr/src/fusemount",
		SandboxMount: "/usr/src/dockermount",
		LogFile:      "tracer.log",
		Launcher:     LauncherDocker,
	}
}

// Load loads the file named by CAIRN_CONFIG, if set, and applies
// CAIRN_MNT_DIR.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(ConfigEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.finish()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path and applies
// CAIRN_MNT_DIR.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.finish()
	return cfg, nil
}

// loadFile merges a single configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one set of tags serves both.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) finish() {
	if mountDir := os.Getenv(MountDirEnv); mountDir != "" {
		c.MountDir = mountDir
	}
	c.expandVariables()
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.MountDir = expandVars(c.MountDir, vars)
	vars["CAIRN_MNT_DIR"] = c.MountDir

	c.ChrootDir = expandVars(c.ChrootDir, vars)
	c.SandboxMount = expandVars(c.SandboxMount, vars)
	c.LogFile = expandVars(c.LogFile, vars)
	c.WorkDir = expandVars(c.WorkDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars win over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. It does not require
// MountDir; see RequireMountDir.
func (c *Config) Validate() error {
	var errs []error

	if c.Launcher != LauncherDocker && c.Launcher != LauncherLocal {
		errs = append(errs, fmt.Errorf("launcher must be %q or %q, got %q", LauncherDocker, LauncherLocal, c.Launcher))
	}
	if c.Launcher == LauncherDocker {
		if c.Container == "" {
			errs = append(errs, fmt.Errorf("container is required for the docker launcher"))
		}
		if c.ChrootDir == "" {
			errs = append(errs, fmt.Errorf("chroot_dir is required for the docker launcher"))
		}
	}
	if c.LogFile == "" {
		errs = append(errs, fmt.Errorf("log_file is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RequireMountDir returns MountDir, or ErrEnvironment when it is not
// configured or does not name an existing directory.
func (c *Config) RequireMountDir() (string, error) {
	if c.MountDir == "" {
		return "", fmt.Errorf("%w: %s not set", ErrEnvironment, MountDirEnv)
	}
	info, err := os.Stat(c.MountDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s=%s: %v", ErrEnvironment, MountDirEnv, c.MountDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s=%s is not a directory", ErrEnvironment, MountDirEnv, c.MountDir)
	}
	return c.MountDir, nil
}

// LogPath returns the trace log path on the host.
func (c *Config) LogPath() (string, error) {
	if filepath.IsAbs(c.LogFile) {
		return c.LogFile, nil
	}
	mountDir, err := c.RequireMountDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(mountDir, c.LogFile), nil
}
