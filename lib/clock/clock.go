// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts time operations for testability. Production code
// injects Real(); tests inject NewFake() with deterministic time
// control.
//
// Components that wait on wall-clock time (the delivery worker's
// bounded wait, the flush monitor's period check, the sampling
// controller's frame timestamps) accept a Clock instead of calling
// the time package directly. Hot-path event timestamping does not go
// through Clock: producer-side appends stamp events with raw
// monotonic ticks to keep per-event overhead at a bare time.Now call.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the current goroutine for at least duration d.
	// Equivalent to time.Sleep.
	Sleep(d time.Duration)
}
