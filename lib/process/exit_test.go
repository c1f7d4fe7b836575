// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestReportFormat(t *testing.T) {
	var buffer bytes.Buffer
	report(&buffer, errors.New("CAIRN_MNT_DIR is not set"))
	if got, want := buffer.String(), "error: CAIRN_MNT_DIR is not set\n"; got != want {
		t.Errorf("report wrote %q, want %q", got, want)
	}
}

func TestSignalContextFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SignalContext(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("ctx.Err() = %v, want context.Canceled", ctx.Err())
	}
}
