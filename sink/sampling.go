// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"sync"
	"time"

	"github.com/perfwire/perfwire/lib/clock"
	"github.com/perfwire/perfwire/tracing"
)

// timeRange is a closed interval of wall-clock time during which
// spans are worth keeping.
type timeRange struct {
	begin time.Time
	end   time.Time
}

// overlaps reports whether r intersects [begin, end]. Boundary
// touches count as overlap.
func (r timeRange) overlaps(begin, end time.Time) bool {
	return !begin.After(r.end) && !end.Before(r.begin)
}

// SamplingController decides which span blocks are worth
// transmitting. The host calls Tick once per frame (or per work
// cycle); a frame whose duration spikes above the running average
// marks its time range as interesting, and only span blocks
// overlapping an interesting range are shipped. Log and metric blocks
// are gated by their toggles alone.
//
// Each detected spike inflates the spike threshold slightly, so a
// workload that is permanently slow stops registering every frame as
// a spike.
type SamplingController struct {
	clk            clock.Clock
	toggles        *Toggles
	spikeInflation float64
	maxRanges      int
	retention      time.Duration

	mu          sync.Mutex
	average     *RunningAverage
	spikeFactor float64
	lastTick    time.Time
	haveLast    bool
	ranges      []timeRange
}

// SamplingConfig configures a SamplingController. Zero fields take
// the package defaults from DefaultConfig.
type SamplingConfig struct {
	Clock                clock.Clock
	Toggles              *Toggles
	SpikeFactor          float64
	SpikeInflation       float64
	RunningAverageWindow int
	MaxSampledRanges     int

	// Retention bounds how long a sampled range stays interesting.
	// Ranges older than this are pruned; one flush period is enough
	// since any overlapping block has been flushed by then.
	Retention time.Duration
}

// NewSamplingController creates a controller. Toggles must be
// non-nil; everything else defaults.
func NewSamplingController(cfg SamplingConfig) *SamplingController {
	if cfg.Toggles == nil {
		panic("sink: SamplingConfig.Toggles is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.SpikeFactor <= 0 {
		cfg.SpikeFactor = defaultSpikeFactor
	}
	if cfg.SpikeInflation <= 0 {
		cfg.SpikeInflation = defaultSpikeInflation
	}
	if cfg.RunningAverageWindow <= 0 {
		cfg.RunningAverageWindow = defaultRunningAverageWindow
	}
	if cfg.MaxSampledRanges <= 0 {
		cfg.MaxSampledRanges = defaultMaxSampledRanges
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultFlushPeriod
	}
	return &SamplingController{
		clk:            cfg.Clock,
		toggles:        cfg.Toggles,
		spikeInflation: cfg.SpikeInflation,
		maxRanges:      cfg.MaxSampledRanges,
		retention:      cfg.Retention,
		average:        NewRunningAverage(cfg.RunningAverageWindow),
		spikeFactor:    cfg.SpikeFactor,
	}
}

// Tick marks a frame boundary. The elapsed time since the previous
// Tick is the frame duration: it first updates the running average,
// then compares against it, so a single slow frame after a steady run
// still registers as a spike while a gradual slowdown does not.
func (c *SamplingController) Tick() {
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.haveLast {
		c.lastTick = now
		c.haveLast = true
		return
	}

	previous := c.lastTick
	c.lastTick = now
	duration := now.Sub(previous).Seconds()

	c.average.Add(duration)
	average := c.average.Average()
	if average <= 0 || duration < average*c.spikeFactor {
		return
	}

	c.pruneLocked(now)
	c.ranges = append(c.ranges, timeRange{begin: previous, end: now})
	if len(c.ranges) > c.maxRanges {
		c.ranges = c.ranges[len(c.ranges)-c.maxRanges:]
	}
	c.spikeFactor *= c.spikeInflation
}

// pruneLocked drops ranges that ended more than one retention period
// ago. Called with c.mu held.
func (c *SamplingController) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.retention)
	keep := c.ranges[:0]
	for _, r := range c.ranges {
		if r.end.After(cutoff) {
			keep = append(keep, r)
		}
	}
	c.ranges = keep
}

// ShouldSampleLogBlock reports whether a log block is transmitted.
func (c *SamplingController) ShouldSampleLogBlock(*tracing.LogBlock) bool {
	return c.toggles.LogsEnabled()
}

// ShouldSampleMetricBlock reports whether a metric block is
// transmitted.
func (c *SamplingController) ShouldSampleMetricBlock(*tracing.MetricBlock) bool {
	return c.toggles.MetricsEnabled()
}

// ShouldSampleThreadBlock reports whether a span block is
// transmitted: spans must be enabled, and the block's time range must
// overlap a sampled spike range unless the capture-all override is
// set.
func (c *SamplingController) ShouldSampleThreadBlock(block *tracing.ThreadBlock) bool {
	if !c.toggles.SpansEnabled() {
		return false
	}
	if c.toggles.SpansAll() {
		return true
	}

	begin := block.Begin().Time
	end := block.End().Time

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.ranges {
		if r.overlaps(begin, end) {
			return true
		}
	}
	return false
}

// SpikeFactor returns the current (possibly inflated) spike
// threshold multiplier.
func (c *SamplingController) SpikeFactor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spikeFactor
}

// sampledRangeCount returns how many spike ranges are currently
// retained.
func (c *SamplingController) sampledRangeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ranges)
}
