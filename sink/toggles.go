// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import "sync/atomic"

// Toggles are the runtime capture switches: one gate per event
// category plus the capture-all-spans override. All fields are
// atomically readable so block callbacks on hot producer paths never
// take a lock to consult them. Settable at any time without restart.
type Toggles struct {
	logs     atomic.Bool
	metrics  atomic.Bool
	spans    atomic.Bool
	spansAll atomic.Bool
}

// NewToggles returns toggles with logs, metrics, and adaptive span
// sampling enabled, and the capture-all-spans override off.
func NewToggles() *Toggles {
	t := &Toggles{}
	t.logs.Store(true)
	t.metrics.Store(true)
	t.spans.Store(true)
	return t
}

// LogsEnabled reports whether log blocks are transmitted.
func (t *Toggles) LogsEnabled() bool { return t.logs.Load() }

// SetLogsEnabled flips log transmission.
func (t *Toggles) SetLogsEnabled(enabled bool) { t.logs.Store(enabled) }

// MetricsEnabled reports whether metric blocks are transmitted.
func (t *Toggles) MetricsEnabled() bool { return t.metrics.Load() }

// SetMetricsEnabled flips metric transmission.
func (t *Toggles) SetMetricsEnabled(enabled bool) { t.metrics.Store(enabled) }

// SpansEnabled reports whether span blocks may be transmitted at all.
func (t *Toggles) SpansEnabled() bool { return t.spans.Load() }

// SetSpansEnabled flips span transmission.
func (t *Toggles) SetSpansEnabled(enabled bool) { t.spans.Store(enabled) }

// SpansAll reports whether every span block is transmitted
// unconditionally, bypassing adaptive sampling. Highest overhead;
// opt-in.
func (t *Toggles) SpansAll() bool { return t.spansAll.Load() }

// SetSpansAll flips the capture-all-spans override.
func (t *Toggles) SetSpansAll(enabled bool) { t.spansAll.Store(enabled) }
