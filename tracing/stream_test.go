// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"testing"
	"time"
)

func testNow() DualTime {
	wall := time.Now()
	return DualTime{Time: wall, Ticks: wall.UnixNano()}
}

var (
	testTarget  = InternString("test")
	testFile    = InternString("stream_test.go")
	testLogDesc = NewLogMetadata(LevelInfo, testTarget, testFile, 1)
)

func logEvent(msg string) LogEvent {
	return LogEvent{Desc: testLogDesc, Ticks: 1, Msg: msg}
}

func TestBlockAccounting(t *testing.T) {
	block := NewBlock[LogEvent](1024, 0, testNow())

	block.Append(logEvent("hello"))
	block.Append(logEvent("world!"))

	if block.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", block.Len())
	}
	expected := 2*logEventBaseSize + len("hello") + len("world!")
	if block.SizeBytes() != expected {
		t.Fatalf("expected size %d, got %d", expected, block.SizeBytes())
	}
}

func TestStreamTakeBlockSwapsAndSeals(t *testing.T) {
	stream := newStream[LogEvent]("proc", "stream", 1024, []string{"log"}, testNow)

	stream.Append(logEvent("one"))
	stream.Append(logEvent("two"))

	block := stream.TakeBlock()
	if block == nil {
		t.Fatal("expected a block")
	}
	if block.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", block.Len())
	}
	if block.End().Time.IsZero() {
		t.Fatal("taken block was not sealed")
	}
}

func TestStreamTakeBlockEmptyIsNil(t *testing.T) {
	stream := newStream[LogEvent]("proc", "stream", 1024, nil, testNow)

	if block := stream.TakeBlock(); block != nil {
		t.Fatalf("expected nil for empty stream, got block with %d events", block.Len())
	}
}

func TestStreamObjectOffsetsAreMonotonic(t *testing.T) {
	stream := newStream[LogEvent]("proc", "stream", 1024, nil, testNow)

	stream.Append(logEvent("a"))
	stream.Append(logEvent("b"))
	first := stream.TakeBlock()

	stream.Append(logEvent("c"))
	second := stream.TakeBlock()

	if first.ObjectOffset() != 0 {
		t.Fatalf("first block offset: expected 0, got %d", first.ObjectOffset())
	}
	if second.ObjectOffset() != 2 {
		t.Fatalf("second block offset: expected 2, got %d", second.ObjectOffset())
	}
}

func TestStreamMarkFullForcesFullness(t *testing.T) {
	stream := newStream[LogEvent]("proc", "stream", DefaultBlockCapacity, nil, testNow)

	stream.Append(logEvent("tiny"))
	if stream.IsFull() {
		t.Fatal("stream should not be full after one tiny event")
	}

	stream.MarkFull()
	if !stream.IsFull() {
		t.Fatal("MarkFull should make the stream report full")
	}

	// Swapping restores the size-based threshold.
	if block := stream.TakeBlock(); block == nil {
		t.Fatal("expected the marked-full block")
	}
	stream.Append(logEvent("tiny again"))
	if stream.IsFull() {
		t.Fatal("threshold was not restored after TakeBlock")
	}
}

func TestStreamAppendReportsFullness(t *testing.T) {
	// Capacity below blockPadding: threshold falls back to 3/4.
	stream := newStream[LogEvent]("proc", "stream", 200, nil, testNow)

	if full := stream.Append(logEvent("0123456789")); full {
		t.Fatal("stream reported full too early")
	}
	// Threshold is 150 bytes; each event is 50. The third append
	// crosses it.
	stream.Append(logEvent("0123456789"))
	if full := stream.Append(logEvent("0123456789")); !full {
		t.Fatal("stream did not report full at the threshold")
	}
}

func TestStreamProperties(t *testing.T) {
	stream := newStream[LogEvent]("proc", "stream", 1024, nil, testNow)
	stream.SetProperty("thread-name", "worker-3")

	properties := stream.Properties()
	if properties["thread-name"] != "worker-3" {
		t.Fatalf("unexpected properties: %v", properties)
	}

	// The returned map is a copy.
	properties["thread-name"] = "mutated"
	if stream.Properties()["thread-name"] != "worker-3" {
		t.Fatal("Properties returned a live reference")
	}
}
