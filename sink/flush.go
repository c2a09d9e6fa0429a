// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"sync"
	"time"

	"github.com/perfwire/perfwire/lib/clock"
	"github.com/perfwire/perfwire/tracing"
)

// FlushMonitor forces partially filled blocks out on a timer so a
// mostly idle process still reports within one flush period. The
// delivery worker calls Tick between queue drains; an explicit Flush
// resets the timer so a manual flush isn't immediately followed by a
// periodic one.
type FlushMonitor struct {
	clk    clock.Clock
	period time.Duration
	busy   func() bool

	mu        sync.Mutex
	dispatch  *tracing.Dispatch
	lastFlush time.Time
}

// NewFlushMonitor creates a monitor. busy reports whether the
// delivery worker still has queued payloads; a due flush is deferred
// while busy so flushing never piles more work onto a backlog.
func NewFlushMonitor(clk clock.Clock, period time.Duration, busy func() bool) *FlushMonitor {
	if clk == nil {
		clk = clock.Real()
	}
	if period <= 0 {
		period = defaultFlushPeriod
	}
	return &FlushMonitor{
		clk:       clk,
		period:    period,
		busy:      busy,
		lastFlush: clk.Now(),
	}
}

// Bind attaches the dispatch whose streams the monitor flushes. Ticks
// before Bind only advance the timer.
func (m *FlushMonitor) Bind(dispatch *tracing.Dispatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch = dispatch
}

// Period returns the configured flush interval.
func (m *FlushMonitor) Period() time.Duration { return m.period }

// Tick flushes all streams if a full period has elapsed since the
// last flush and the worker is idle. It returns the time until the
// next flush is due, suitable as the worker's wait timeout.
func (m *FlushMonitor) Tick() time.Duration {
	now := m.clk.Now()

	m.mu.Lock()
	next := m.lastFlush.Add(m.period)
	if now.Before(next) {
		m.mu.Unlock()
		return next.Sub(now)
	}
	if m.busy != nil && m.busy() {
		// Backlog in flight: try again next wake.
		m.mu.Unlock()
		return m.period
	}
	dispatch := m.dispatch
	m.lastFlush = now
	m.mu.Unlock()

	if dispatch != nil {
		flushAll(dispatch)
	}
	return m.period
}

// Flush forces all streams out immediately and resets the periodic
// timer. Safe to call at any time; flushing empty streams produces no
// blocks.
func (m *FlushMonitor) Flush() {
	m.mu.Lock()
	dispatch := m.dispatch
	m.lastFlush = m.clk.Now()
	m.mu.Unlock()

	if dispatch != nil {
		flushAll(dispatch)
	}
}

func flushAll(dispatch *tracing.Dispatch) {
	dispatch.FlushLogStream()
	dispatch.FlushMetricStream()
	dispatch.FlushAllThreadStreams()
}
