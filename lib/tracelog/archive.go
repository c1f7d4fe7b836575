// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sys/unix"
)

// Compression selects the codec for an archived log.
type Compression uint8

const (
	// CompressionZstd gives the better ratio on the highly repetitive
	// trace text and is the default.
	CompressionZstd Compression = iota + 1

	// CompressionLZ4 trades ratio for speed on very large logs.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// Extension returns the file suffix Open recognizes for c.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (valid: zstd, lz4)", name)
	}
}

// ArchiveOptions configures Archive.
type ArchiveOptions struct {
	// Compression defaults to CompressionZstd.
	Compression Compression

	// Truncate empties the source log after the archive has been
	// written and closed. The source is held under an exclusive flock
	// from the copy through the truncate, so writers going through
	// LockedWriter wait rather than lose records. The daemon holds the
	// log open for append, so its next record lands at offset zero.
	Truncate bool
}

// Archive writes a compressed copy of the log at source to
// destination and returns the number of uncompressed bytes archived.
// The destination is created or replaced.
func Archive(source, destination string, options ArchiveOptions) (int64, error) {
	if options.Compression == 0 {
		options.Compression = CompressionZstd
	}

	flag := os.O_RDONLY
	if options.Truncate {
		flag = os.O_RDWR
	}
	input, err := os.OpenFile(source, flag, 0)
	if err != nil {
		return 0, fmt.Errorf("opening log: %w", err)
	}
	defer input.Close()
	if options.Truncate {
		if err := flock(input, unix.LOCK_EX); err != nil {
			return 0, fmt.Errorf("locking %s: %w", source, err)
		}
		defer flock(input, unix.LOCK_UN)
	}

	output, err := os.Create(destination)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}

	written, err := compressStream(output, input, options.Compression)
	if closeErr := output.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destination)
		return 0, fmt.Errorf("archiving %s: %w", source, err)
	}

	if options.Truncate {
		if err := input.Truncate(0); err != nil {
			return written, fmt.Errorf("truncating %s: %w", source, err)
		}
	}
	return written, nil
}

func compressStream(output io.Writer, input io.Reader, compression Compression) (int64, error) {
	var encoder io.WriteCloser
	switch compression {
	case CompressionZstd:
		zstdEncoder, err := zstd.NewWriter(output, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return 0, err
		}
		encoder = zstdEncoder
	case CompressionLZ4:
		encoder = lz4.NewWriter(output)
	default:
		return 0, fmt.Errorf("unsupported compression %v", compression)
	}

	written, err := io.Copy(encoder, input)
	if closeErr := encoder.Close(); err == nil {
		err = closeErr
	}
	return written, err
}

// Open opens a trace log for reading. Files ending in ".zst" or
// ".lz4" are decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace log: %w", err)
	}

	switch {
	case strings.HasSuffix(path, CompressionZstd.Extension()):
		decoder, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening zstd trace log %s: %w", path, err)
		}
		return &decompressedLog{Reader: decoder, close: func() error {
			decoder.Close()
			return file.Close()
		}}, nil
	case strings.HasSuffix(path, CompressionLZ4.Extension()):
		return &decompressedLog{Reader: lz4.NewReader(file), close: file.Close}, nil
	default:
		return file, nil
	}
}

type decompressedLog struct {
	io.Reader
	close func() error
}

func (l *decompressedLog) Close() error {
	if l.close == nil {
		return errors.New("trace log already closed")
	}
	err := l.close()
	l.close = nil
	return err
}
