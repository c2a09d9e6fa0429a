// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import "time"

// DualTime is an instant recorded on two timelines: the wall clock
// (for human-readable envelope fields) and the process-local
// monotonic tick counter (for precise intervals immune to wall-clock
// adjustment). Ticks are nanoseconds since process start; the tick
// frequency is published in ProcessInfo.TscFrequency so the backend
// can convert.
type DualTime struct {
	Time  time.Time
	Ticks int64
}
