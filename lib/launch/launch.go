// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrLaunchFailed reports that the build command did not start or did
// not end its output with a root pid.
var ErrLaunchFailed = errors.New("process launch failed")

// Launcher runs a build command to completion.
type Launcher interface {
	Launch(ctx context.Context, command []string, stdio IO) (Result, error)
}

// IO receives the command's output. Stdout gets every stdout line
// except the trailing pid line. Nil writers discard.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (s IO) stdout() io.Writer {
	if s.Stdout == nil {
		return io.Discard
	}
	return s.Stdout
}

func (s IO) stderr() io.Writer {
	if s.Stderr == nil {
		return io.Discard
	}
	return s.Stderr
}

// Result describes a finished command.
type Result struct {
	// RootPID is the pid the command reported on its last stdout
	// line.
	RootPID uint32

	// ExitCode is the command's exit status.
	ExitCode int
}

// maxLine bounds a single line of command output.
const maxLine = 1 << 20

// StreamOutput copies lines from r to w as they arrive, holding each
// line back until the next one shows the stream has not ended. It
// returns the final line, which is never written to w.
func StreamOutput(r io.Reader, w io.Writer) (string, error) {
	if w == nil {
		w = io.Discard
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var last string
	held := false
	for scanner.Scan() {
		if held {
			if _, err := io.WriteString(w, last+"\n"); err != nil {
				return "", fmt.Errorf("echoing command output: %w", err)
			}
		}
		last = scanner.Text()
		held = true
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading command output: %w", err)
	}
	return last, nil
}

// ParseRootPID parses the trailing output line of a build command.
func ParseRootPID(line string) (uint32, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("%w: command printed no root pid", ErrLaunchFailed)
	}
	pid, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: last output line %q is not a pid", ErrLaunchFailed, line)
	}
	return uint32(pid), nil
}

// TrimHostPrefix strips prefix from the front of every word, so that
// paths spelled with the host mount directory resolve inside the
// build root. An empty prefix leaves the words unchanged.
func TrimHostPrefix(words []string, prefix string) []string {
	trimmed := make([]string, len(words))
	for i, word := range words {
		if prefix != "" {
			word = strings.TrimPrefix(word, prefix)
		}
		trimmed[i] = word
	}
	return trimmed
}
