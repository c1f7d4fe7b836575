// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cairn-build/cairn/lib/codec"
	"gopkg.in/yaml.v3"
)

// isYAML reports whether path names a YAML manifest. Everything else
// is CBOR.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Write encodes manifest to path, as YAML for .yaml and .yml and as
// CBOR otherwise.
func Write(path string, manifest *Manifest) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(manifest)
	} else {
		data, err = codec.Marshal(manifest)
	}
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Read decodes a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest Manifest
	if isYAML(path) {
		err = yaml.Unmarshal(data, &manifest)
	} else {
		err = codec.Unmarshal(data, &manifest)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return &manifest, nil
}
