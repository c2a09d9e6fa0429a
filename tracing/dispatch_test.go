// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// recordingSink captures every sink callback for assertions. All
// methods are safe for concurrent use since block callbacks arrive on
// producer goroutines.
type recordingSink struct {
	mu           sync.Mutex
	calls        []string
	logBlocks    []*LogBlock
	metricBlocks []*MetricBlock
	threadBlocks []*ThreadBlock
	shutdowns    int
}

func (s *recordingSink) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingSink) OnStartup(*ProcessInfo) { s.record("startup") }

func (s *recordingSink) OnShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "shutdown")
	s.shutdowns++
}

func (s *recordingSink) OnInitLogStream(*LogStream)       { s.record("init-log") }
func (s *recordingSink) OnInitMetricStream(*MetricStream) { s.record("init-metric") }
func (s *recordingSink) OnInitThreadStream(*ThreadStream) { s.record("init-thread") }

func (s *recordingSink) OnLogBlock(_ *LogStream, block *LogBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "log-block")
	s.logBlocks = append(s.logBlocks, block)
}

func (s *recordingSink) OnMetricBlock(_ *MetricStream, block *MetricBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "metric-block")
	s.metricBlocks = append(s.metricBlocks, block)
}

func (s *recordingSink) OnThreadBlock(_ *ThreadStream, block *ThreadBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "thread-block")
	s.threadBlocks = append(s.threadBlocks, block)
}

func (s *recordingSink) IsBusy() bool { return false }

func (s *recordingSink) callsSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestDispatch(t *testing.T, sink EventSink) *Dispatch {
	t.Helper()
	streamCounter := 0
	d, err := NewDispatch(DispatchConfig{
		Process: NewProcessInfo(map[string]string{"build-version": "test"}),
		Sink:    sink,
		NewStreamID: func() string {
			streamCounter++
			return fmt.Sprintf("stream-%d", streamCounter)
		},
	})
	if err != nil {
		t.Fatalf("NewDispatch: %v", err)
	}
	return d
}

func TestNewDispatchRejectsMissingConfig(t *testing.T) {
	if _, err := NewDispatch(DispatchConfig{Sink: NullSink{}}); err == nil {
		t.Fatal("expected error for missing ProcessInfo")
	}
	if _, err := NewDispatch(DispatchConfig{Process: NewProcessInfo(nil)}); err == nil {
		t.Fatal("expected error for missing EventSink")
	}
}

func TestDispatchRegistrationOrdering(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	d.Log(testLogDesc, "first message")
	d.FlushLogStream()

	calls := sink.callsSnapshot()
	indexOf := func(call string) int {
		for i, c := range calls {
			if c == call {
				return i
			}
		}
		return -1
	}

	if indexOf("startup") != 0 {
		t.Fatalf("expected startup first, got %v", calls)
	}
	if indexOf("init-log") < 0 || indexOf("init-log") > indexOf("log-block") {
		t.Fatalf("stream registration must precede its first block, got %v", calls)
	}
}

func TestDispatchFlushIdempotence(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	d.Log(testLogDesc, "one event")
	d.FlushLogStream()
	d.FlushLogStream() // no new events: must be a no-op

	if len(sink.logBlocks) != 1 {
		t.Fatalf("expected exactly one log block, got %d", len(sink.logBlocks))
	}
	if sink.logBlocks[0].Len() != 1 {
		t.Fatalf("expected 1 event in block, got %d", sink.logBlocks[0].Len())
	}
}

func TestDispatchLogStatic(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	d.LogStatic(testLogDesc, InternString("interned message"))
	d.FlushLogStream()

	events := sink.logBlocks[0].Events()
	if events[0].Msg != "interned message" {
		t.Fatalf("static log message = %q", events[0].Msg)
	}
}

func TestDispatchAutoFlushOnFullBlock(t *testing.T) {
	sink := &recordingSink{}
	streamCounter := 0
	d, err := NewDispatch(DispatchConfig{
		Process:          NewProcessInfo(nil),
		Sink:             sink,
		LogBlockCapacity: 256,
		NewStreamID: func() string {
			streamCounter++
			return fmt.Sprintf("stream-%d", streamCounter)
		},
	})
	if err != nil {
		t.Fatalf("NewDispatch: %v", err)
	}

	// Threshold is 192 bytes; each event is ~50. The fourth append
	// crosses it and must flush without an explicit call.
	for i := 0; i < 4; i++ {
		d.Log(testLogDesc, "0123456789")
	}

	if len(sink.logBlocks) != 1 {
		t.Fatalf("expected one auto-flushed block, got %d", len(sink.logBlocks))
	}
}

func TestDispatchThreadStreams(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	spanDesc := NewSpanMetadata(InternString("update"), testTarget, testFile, 10)

	stream := d.NewThreadStream("worker-1")
	stream.BeginSpan(spanDesc)
	stream.EndSpan(spanDesc)
	stream.Flush()

	if len(sink.threadBlocks) != 1 {
		t.Fatalf("expected one thread block, got %d", len(sink.threadBlocks))
	}
	if sink.threadBlocks[0].Len() != 2 {
		t.Fatalf("expected 2 span events, got %d", sink.threadBlocks[0].Len())
	}

	properties := stream.Properties()
	if properties["thread-name"] != "worker-1" {
		t.Fatalf("missing thread-name property: %v", properties)
	}
	if properties["thread-id"] == "" {
		t.Fatalf("missing thread-id property: %v", properties)
	}
}

func TestDispatchFlushAllThreadStreams(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	spanDesc := NewSpanMetadata(InternString("tick"), testTarget, testFile, 20)

	first := d.NewThreadStream("a")
	second := d.NewThreadStream("b")
	first.BeginSpan(spanDesc)
	second.BeginSpan(spanDesc)

	d.FlushAllThreadStreams()

	if len(sink.threadBlocks) != 2 {
		t.Fatalf("expected 2 thread blocks, got %d", len(sink.threadBlocks))
	}
}

func TestDispatchDefaultContext(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	d.SetDefaultContext(map[string]string{"world": "main"})
	d.Log(testLogDesc, "in main world")
	d.SetDefaultContext(nil)
	d.Log(testLogDesc, "no context")
	d.FlushLogStream()

	events := sink.logBlocks[0].Events()
	if events[0].Properties == nil || events[0].Properties.Len() != 1 {
		t.Fatal("first event should carry the default context")
	}
	if events[1].Properties != nil {
		t.Fatal("second event should have no context after clearing")
	}
}

func TestDispatchShutdownFlushesEverything(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	spanDesc := NewSpanMetadata(InternString("load"), testTarget, testFile, 30)
	metricDesc := NewMetricMetadata(InternString("fps"), InternString("count"),
		testTarget, testFile, 31, VerbosityMin)

	stream := d.NewThreadStream("worker")
	stream.BeginSpan(spanDesc)
	d.Log(testLogDesc, "pending log")
	d.IntMetric(metricDesc, 60)

	d.Shutdown()
	d.Shutdown() // second call must be a no-op

	if len(sink.logBlocks) != 1 || len(sink.metricBlocks) != 1 || len(sink.threadBlocks) != 1 {
		t.Fatalf("shutdown did not flush all streams: log=%d metric=%d thread=%d",
			len(sink.logBlocks), len(sink.metricBlocks), len(sink.threadBlocks))
	}
	if sink.shutdowns != 1 {
		t.Fatalf("expected exactly one OnShutdown, got %d", sink.shutdowns)
	}
}

func TestDispatchPanicFlush(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	d.PanicFlush("assertion failed in frame update")

	if len(sink.logBlocks) != 1 {
		t.Fatalf("expected one final log block, got %d", len(sink.logBlocks))
	}
	events := sink.logBlocks[0].Events()
	last := events[len(events)-1]
	if last.Desc.Level != LevelFatal {
		t.Fatalf("expected fatal level, got %v", last.Desc.Level)
	}
	if !strings.Contains(last.Msg, "assertion failed in frame update") {
		t.Fatalf("fatal message missing reason: %q", last.Msg)
	}
	if !strings.Contains(last.Msg, "goroutine") {
		t.Fatal("fatal message missing stack trace")
	}
	if sink.shutdowns != 1 {
		t.Fatal("PanicFlush must shut down the sink")
	}
}

func TestDispatchConcurrentProducers(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatch(t, sink)

	var wait sync.WaitGroup
	for producer := 0; producer < 4; producer++ {
		wait.Add(1)
		go func(id int) {
			defer wait.Done()
			stream := d.NewThreadStream(fmt.Sprintf("producer-%d", id))
			spanDesc := NewSpanMetadata(InternString("work"), testTarget, testFile, 40)
			for i := 0; i < 100; i++ {
				stream.BeginSpan(spanDesc)
				d.Log(testLogDesc, "concurrent message")
				d.IntMetric(testMetricDesc, uint64(i))
				stream.EndSpan(spanDesc)
			}
		}(producer)
	}
	wait.Wait()

	d.Shutdown()

	totalLogs := 0
	for _, block := range sink.logBlocks {
		totalLogs += block.Len()
	}
	if totalLogs != 400 {
		t.Fatalf("expected 400 log events across blocks, got %d", totalLogs)
	}

	totalSpans := 0
	for _, block := range sink.threadBlocks {
		totalSpans += block.Len()
	}
	if totalSpans != 800 {
		t.Fatalf("expected 800 span events across blocks, got %d", totalSpans)
	}
}

var testMetricDesc = NewMetricMetadata(InternString("iterations"), InternString("count"),
	testTarget, testFile, 50, VerbosityMed)
