// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time source cairn stamps and compares against.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
