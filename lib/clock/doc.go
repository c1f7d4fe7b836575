// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Trace records carry a wall-clock timestamp and the filter compares
// those timestamps against a recorded start time, so every component
// that stamps or compares times takes a Clock instead of calling
// time.Now directly. Production code passes Real(); tests pass
// Fake() and move time with Advance.
//
//	c := clock.Fake(time.Unix(150, 0))
//	emitter := tracelog.NewEmitter(w, tracelog.EmitterOptions{Clock: c})
//	c.Advance(50 * time.Second)
package clock
