// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleEvent struct {
	Op   string `cbor:"op"`
	Path string `cbor:"path"`
	Size int64  `cbor:"size,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]sampleEvent{
		"b": {Op: "w", Path: "/out/b.o"},
		"a": {Op: "r", Path: "/src/a.c", Size: 12},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal produced different bytes for the same value")
		}
	}
}

func TestDecodeIntoAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(sampleEvent{Op: "w", Path: "/out/b.o"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if fields["path"] != "/out/b.o" {
		t.Errorf("path = %v, want /out/b.o", fields["path"])
	}
	if _, present := fields["size"]; present {
		t.Error("omitempty field size should be absent")
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	events := []sampleEvent{{Op: "r", Path: "/a"}, {Op: "d", Path: "/b"}}
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range events {
		var got sampleEvent
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got != want {
			t.Errorf("event %d = %+v, want %+v", i, got, want)
		}
	}
}
