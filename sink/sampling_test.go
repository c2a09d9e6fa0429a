// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"math"
	"testing"
	"time"

	"github.com/perfwire/perfwire/lib/clock"
	"github.com/perfwire/perfwire/tracing"
)

func TestTimeRangeOverlaps(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }
	r := timeRange{begin: at(100), end: at(200)}

	tests := []struct {
		name       string
		begin, end time.Time
		want       bool
	}{
		{"contained", at(120), at(180), true},
		{"straddles begin", at(50), at(150), true},
		{"straddles end", at(150), at(250), true},
		{"covers range", at(50), at(250), true},
		{"touches begin boundary", at(50), at(100), true},
		{"touches end boundary", at(200), at(250), true},
		{"entirely before", at(0), at(99), false},
		{"entirely after", at(201), at(300), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.overlaps(tt.begin, tt.end); got != tt.want {
				t.Fatalf("overlaps(%v, %v) = %v, want %v", tt.begin, tt.end, got, tt.want)
			}
		})
	}
}

func newTestController(fake *clock.Fake) *SamplingController {
	return NewSamplingController(SamplingConfig{
		Clock:   fake,
		Toggles: NewToggles(),
	})
}

// tickFrames advances the fake clock by each delta in turn, calling
// Tick after each advance. The first Tick (frame zero) is the
// caller's responsibility.
func tickFrames(fake *clock.Fake, controller *SamplingController, deltas ...time.Duration) {
	for _, delta := range deltas {
		fake.Advance(delta)
		controller.Tick()
	}
}

func TestSamplingSteadyFramesNoSpike(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)

	controller.Tick()
	for i := 0; i < 20; i++ {
		tickFrames(fake, controller, 16*time.Millisecond)
	}

	if got := controller.sampledRangeCount(); got != 0 {
		t.Fatalf("steady frames produced %d sampled ranges, want 0", got)
	}
	if got := controller.SpikeFactor(); got != defaultSpikeFactor {
		t.Fatalf("spike factor changed without a spike: %g", got)
	}
}

// A single slow frame after a steady run must register even though it
// also drags the average up: the average is updated first, then
// compared.
func TestSamplingDetectsSingleSlowFrame(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)
	controller.average.Add(0.060) // prior slow startup frame

	controller.Tick()
	tickFrames(fake, controller,
		16*time.Millisecond,
		16*time.Millisecond,
		16*time.Millisecond,
		16*time.Millisecond,
	)
	if got := controller.sampledRangeCount(); got != 0 {
		t.Fatalf("fast frames after a slow seed produced %d ranges, want 0", got)
	}

	// 80ms frame: average becomes (60+4*16+80)/6 = 34ms, threshold
	// 44.2ms, so 80ms is a spike.
	tickFrames(fake, controller, 80*time.Millisecond)
	if got := controller.sampledRangeCount(); got != 1 {
		t.Fatalf("slow frame produced %d ranges, want 1", got)
	}
}

// A permanently slow workload must stop producing spikes: every frame
// equal to the average never exceeds average*factor for factor > 1.
func TestSamplingUniformSlownessNotASpike(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)

	controller.Tick()
	for i := 0; i < 40; i++ {
		tickFrames(fake, controller, 100*time.Millisecond)
	}

	if got := controller.sampledRangeCount(); got != 0 {
		t.Fatalf("uniformly slow frames produced %d ranges, want 0", got)
	}
}

func TestSamplingSpikeFactorInflation(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)

	controller.Tick()
	tickFrames(fake, controller,
		16*time.Millisecond, 16*time.Millisecond, 16*time.Millisecond, 16*time.Millisecond,
		200*time.Millisecond,
	)

	if got := controller.sampledRangeCount(); got != 1 {
		t.Fatalf("expected 1 spike, got %d ranges", got)
	}
	want := defaultSpikeFactor * defaultSpikeInflation
	if got := controller.SpikeFactor(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("spike factor after spike = %g, want %g", got, want)
	}
}

func TestSamplingPrunesExpiredRanges(t *testing.T) {
	fake := clock.NewFake()
	controller := NewSamplingController(SamplingConfig{
		Clock:     fake,
		Toggles:   NewToggles(),
		Retention: time.Second,
	})

	controller.Tick()
	tickFrames(fake, controller,
		16*time.Millisecond, 16*time.Millisecond, 16*time.Millisecond,
		200*time.Millisecond,
	)
	if got := controller.sampledRangeCount(); got != 1 {
		t.Fatalf("expected 1 range after first spike, got %d", got)
	}

	// A second spike a full 30 seconds later: pruning on insert must
	// drop the first range, which expired 29 seconds ago.
	tickFrames(fake, controller, 30*time.Second)
	if got := controller.sampledRangeCount(); got != 1 {
		t.Fatalf("expected expired range pruned, got %d ranges", got)
	}
}

// threadBlockAt builds a sealed span block covering [begin, end].
func threadBlockAt(begin, end time.Time) *tracing.ThreadBlock {
	desc := tracing.NewSpanMetadata(
		tracing.InternString("frame"),
		tracing.InternString("engine"),
		tracing.InternString("engine/frame.go"),
		1,
	)
	block := tracing.NewBlock[tracing.ThreadEvent](1024, 0, tracing.DualTime{Time: begin})
	block.Append(tracing.BeginSpanEvent{Desc: desc})
	block.Append(tracing.EndSpanEvent{Desc: desc})
	block.Seal(tracing.DualTime{Time: end})
	return block
}

func TestSamplingThreadBlockGating(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)

	start := fake.Now()
	controller.Tick()
	tickFrames(fake, controller,
		16*time.Millisecond, 16*time.Millisecond, 16*time.Millisecond, 16*time.Millisecond,
		200*time.Millisecond,
	)
	// The spike range covers the 200ms frame: [start+64ms, start+264ms].

	overlapping := threadBlockAt(start.Add(100*time.Millisecond), start.Add(300*time.Millisecond))
	if !controller.ShouldSampleThreadBlock(overlapping) {
		t.Fatal("block overlapping the spike range must be sampled")
	}

	outside := threadBlockAt(start.Add(-2*time.Second), start.Add(-time.Second))
	if controller.ShouldSampleThreadBlock(outside) {
		t.Fatal("block outside every spike range must not be sampled")
	}
}

func TestSamplingSpansAllOverride(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)

	start := fake.Now()
	block := threadBlockAt(start, start.Add(time.Millisecond))

	if controller.ShouldSampleThreadBlock(block) {
		t.Fatal("block must not be sampled with no spike ranges")
	}

	controller.toggles.SetSpansAll(true)
	if !controller.ShouldSampleThreadBlock(block) {
		t.Fatal("capture-all override must bypass spike sampling")
	}

	controller.toggles.SetSpansEnabled(false)
	if controller.ShouldSampleThreadBlock(block) {
		t.Fatal("disabled spans must win over the capture-all override")
	}
}

func TestSamplingCategoryToggles(t *testing.T) {
	fake := clock.NewFake()
	controller := newTestController(fake)

	logBlock := tracing.NewBlock[tracing.LogEvent](1024, 0, tracing.DualTime{})
	metricBlock := tracing.NewBlock[tracing.MetricEvent](1024, 0, tracing.DualTime{})

	if !controller.ShouldSampleLogBlock(logBlock) {
		t.Fatal("logs enabled by default")
	}
	controller.toggles.SetLogsEnabled(false)
	if controller.ShouldSampleLogBlock(logBlock) {
		t.Fatal("disabled logs must not be sampled")
	}

	if !controller.ShouldSampleMetricBlock(metricBlock) {
		t.Fatal("metrics enabled by default")
	}
	controller.toggles.SetMetricsEnabled(false)
	if controller.ShouldSampleMetricBlock(metricBlock) {
		t.Fatal("disabled metrics must not be sampled")
	}
}
