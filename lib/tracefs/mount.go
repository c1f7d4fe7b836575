// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// MountOptions configures a traced pass-through mount.
type MountOptions struct {
	// Root is the backing directory. Required.
	Root string

	// Mountpoint is where the filesystem is mounted. Created if it
	// does not exist. Required.
	Mountpoint string

	// Tracer receives traced operations. Required.
	Tracer Tracer

	// AllowOther lets users other than the mounting user access the
	// mount. Requires user_allow_other in /etc/fuse.conf when not
	// running as root.
	AllowOther bool

	// ReadyMarker is a path created once the mount is serving and
	// removed on shutdown. Empty disables the marker.
	ReadyMarker string

	// Debug enables go-fuse wire-level request logging.
	Debug bool

	// Logger receives lifecycle and per-request messages. If nil,
	// only errors are logged, to stderr.
	Logger *slog.Logger
}

// Server is a mounted traced filesystem.
type Server struct {
	fs      *FileSystem
	server  *fuse.Server
	options MountOptions
	logger  *slog.Logger
	ready   chan struct{}
}

// Mount scans the backing root and mounts it at the mountpoint. The
// kernel does not see requests answered until Serve is called.
func Mount(options MountOptions) (*Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	filesystem, err := New(Options{
		Root:   options.Root,
		Tracer: options.Tracer,
		Logger: options.Logger,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	raw := newRawFileSystem(filesystem, options.Logger)
	server, err := fuse.NewServer(raw, options.Mountpoint, &fuse.MountOptions{
		FsName:        "cairn-fuse",
		Name:          "cairn",
		AllowOther:    options.AllowOther,
		Debug:         options.Debug,
		DisableXAttrs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	return &Server{
		fs:      filesystem,
		server:  server,
		options: options,
		logger:  options.Logger,
		ready:   make(chan struct{}),
	}, nil
}

// FileSystem returns the filesystem the server answers requests from.
func (s *Server) FileSystem() *FileSystem { return s.fs }

// Ready is closed once the mount is answering requests and the ready
// marker exists.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Serve answers kernel requests until ctx is cancelled or the mount
// is removed externally. On cancellation it unmounts and waits for
// in-flight requests to drain. The ready marker is removed before
// Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.Serve()
		close(done)
	}()

	if err := s.server.WaitMount(); err != nil {
		s.unmount()
		return fmt.Errorf("waiting for mount at %s: %w", s.options.Mountpoint, err)
	}

	if s.options.ReadyMarker != "" {
		if err := os.WriteFile(s.options.ReadyMarker, nil, 0o644); err != nil {
			s.unmount()
			<-done
			return fmt.Errorf("creating ready marker: %w", err)
		}
		defer s.removeMarker()
	}

	s.logger.Info("traced filesystem mounted",
		"root", s.fs.Root(),
		"mountpoint", s.options.Mountpoint,
	)
	close(s.ready)

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down", "mountpoint", s.options.Mountpoint)
		if err := s.unmount(); err != nil {
			return err
		}
		<-done
	case <-done:
		s.logger.Info("filesystem unmounted externally", "mountpoint", s.options.Mountpoint)
	}
	return nil
}

func (s *Server) unmount() error {
	if err := s.server.Unmount(); err != nil {
		s.logger.Error("unmount failed", "mountpoint", s.options.Mountpoint, "error", err)
		return fmt.Errorf("unmounting %s: %w", s.options.Mountpoint, err)
	}
	return nil
}

func (s *Server) removeMarker() {
	err := os.Remove(s.options.ReadyMarker)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("removing ready marker", "path", s.options.ReadyMarker, "error", err)
	}
}
