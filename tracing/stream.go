// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import "sync"

// blockPadding is subtracted from a block's capacity to form the
// fullness threshold, so streams flush proactively well before the
// hard capacity is reached.
const blockPadding = 64 * 1024

// Stream is an ordered sequence of blocks for one event category in
// one producing context. The stream's mutex guards only the current
// block reference and the property map; it is held for O(1) append
// and swap operations and never across I/O, so producer appends never
// contend with the delivery worker's network calls.
type Stream[E Event] struct {
	streamID  string
	processID string
	tags      []string

	mu            sync.Mutex
	properties    map[string]string
	current       *Block[E]
	fullThreshold int
	capacity      int
	nextOffset    uint64
	now           func() DualTime
}

func newStream[E Event](processID, streamID string, capacityBytes int, tags []string, now func() DualTime) *Stream[E] {
	s := &Stream[E]{
		streamID:   streamID,
		processID:  processID,
		tags:       tags,
		properties: make(map[string]string),
		capacity:   capacityBytes,
		now:        now,
	}
	s.fullThreshold = fullThreshold(capacityBytes)
	s.current = NewBlock[E](capacityBytes, 0, now())
	return s
}

// fullThreshold leaves blockPadding of headroom below capacity. Small
// capacities (tests, tightly constrained hosts) fall back to a
// three-quarters threshold.
func fullThreshold(capacityBytes int) int {
	threshold := capacityBytes - blockPadding
	if threshold <= 0 {
		threshold = (capacityBytes * 3) / 4
		if threshold <= 0 {
			threshold = 1
		}
	}
	return threshold
}

// StreamID returns the stream's unique identifier.
func (s *Stream[E]) StreamID() string { return s.streamID }

// ProcessID returns the owning process identifier.
func (s *Stream[E]) ProcessID() string { return s.processID }

// Tags returns the stream's free-form tags. Callers must not mutate
// the returned slice.
func (s *Stream[E]) Tags() []string { return s.tags }

// SetProperty records a stream property (thread name, thread id).
func (s *Stream[E]) SetProperty(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[name] = value
}

// Properties returns a copy of the stream's property bag.
func (s *Stream[E]) Properties() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(s.properties))
	for key, value := range s.properties {
		copied[key] = value
	}
	return copied
}

// Append adds an event to the current block and reports whether the
// stream is now full and should be flushed by the caller.
func (s *Stream[E]) Append(event E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Append(event)
	return s.current.SizeBytes() >= s.fullThreshold
}

// IsFull reports whether the current block has crossed the fullness
// threshold.
func (s *Stream[E]) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.SizeBytes() >= s.fullThreshold
}

// MarkFull forces the stream to report full so the next append (or an
// explicit flush) closes the current block regardless of size.
func (s *Stream[E]) MarkFull() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullThreshold = 0
}

// TakeBlock atomically swaps in a fresh empty block and returns the
// sealed previous one, or nil if the current block holds no events
// (making redundant flushes no-ops). The swap restores the size-based
// fullness threshold cleared by MarkFull and advances the object
// offset by the number of events taken.
func (s *Stream[E]) TakeBlock() *Block[E] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Len() == 0 {
		s.fullThreshold = fullThreshold(s.capacity)
		return nil
	}

	end := s.now()
	taken := s.current
	taken.Seal(end)

	s.nextOffset += uint64(taken.Len())
	s.current = NewBlock[E](s.capacity, s.nextOffset, end)
	s.fullThreshold = fullThreshold(s.capacity)
	return taken
}

// Aliases for the three concrete stream and block categories.
type (
	LogBlock     = Block[LogEvent]
	MetricBlock  = Block[MetricEvent]
	ThreadBlock  = Block[ThreadEvent]
	LogStream    = Stream[LogEvent]
	MetricStream = Stream[MetricEvent]
)

// ThreadStream captures span events for one producer goroutine. Each
// producer owns its stream exclusively, so appends from different
// producers never contend; only the flush monitor's swap synchronizes
// with the owner, through the stream mutex.
type ThreadStream struct {
	*Stream[ThreadEvent]
	dispatch *Dispatch
}

// BeginSpan records the start of a fixed-name span.
func (t *ThreadStream) BeginSpan(desc *SpanMetadata) {
	t.record(BeginSpanEvent{Desc: desc, Ticks: t.dispatch.ticks()})
}

// EndSpan records the end of a fixed-name span.
func (t *ThreadStream) EndSpan(desc *SpanMetadata) {
	t.record(EndSpanEvent{Desc: desc, Ticks: t.dispatch.ticks()})
}

// BeginNamedSpan records the start of a runtime-named span.
func (t *ThreadStream) BeginNamedSpan(desc *SpanLocation, name StaticString) {
	t.record(BeginNamedSpanEvent{Desc: desc, Name: name, Ticks: t.dispatch.ticks()})
}

// EndNamedSpan records the end of a runtime-named span.
func (t *ThreadStream) EndNamedSpan(desc *SpanLocation, name StaticString) {
	t.record(EndNamedSpanEvent{Desc: desc, Name: name, Ticks: t.dispatch.ticks()})
}

// Flush closes the current block, if non-empty, and hands it to the
// sink.
func (t *ThreadStream) Flush() { t.dispatch.flushThreadStream(t) }

func (t *ThreadStream) record(event ThreadEvent) {
	if t.Append(event) {
		t.dispatch.flushThreadStream(t)
	}
}
