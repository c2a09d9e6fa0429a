// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

// Block is an append-only batch of events with begin/end timestamps
// and the stream-relative offset of its first event. A block is owned
// by its stream until TakeBlock swaps it out; from that point it is
// immutable and safe to read from any goroutine.
//
// Blocks never shrink: Append only adds, and the only way a block
// leaves a stream is whole.
type Block[E Event] struct {
	events    []E
	sizeBytes int
	capacity  int
	begin     DualTime
	end       DualTime
	offset    uint64
}

// NewBlock creates an empty block with the given byte capacity,
// stream-relative object offset, and begin timestamp. Exposed for
// sink-side tests; production code receives blocks from streams.
func NewBlock[E Event](capacityBytes int, offset uint64, begin DualTime) *Block[E] {
	return &Block[E]{capacity: capacityBytes, offset: offset, begin: begin}
}

// Append adds an event and updates the size accounting. The caller
// (the owning stream) is responsible for flushing once the size
// threshold is crossed; Append itself never refuses an event, since
// dropping observability data on a full buffer is not acceptable.
func (b *Block[E]) Append(event E) {
	b.events = append(b.events, event)
	b.sizeBytes += event.approximateSize()
}

// Seal records the end timestamp. Called exactly once, when the block
// is swapped out of its stream.
func (b *Block[E]) Seal(end DualTime) { b.end = end }

// Events returns the captured events in append order. Callers must
// not mutate the returned slice.
func (b *Block[E]) Events() []E { return b.events }

// Len returns the number of captured events.
func (b *Block[E]) Len() int { return len(b.events) }

// SizeBytes returns the approximate serialized size of the captured
// events.
func (b *Block[E]) SizeBytes() int { return b.sizeBytes }

// Capacity returns the block's byte capacity.
func (b *Block[E]) Capacity() int { return b.capacity }

// Begin returns the block's creation timestamp.
func (b *Block[E]) Begin() DualTime { return b.begin }

// End returns the block's seal timestamp (zero until sealed).
func (b *Block[E]) End() DualTime { return b.end }

// ObjectOffset returns the stream-relative index of the block's first
// event. Offsets increase monotonically across a stream's blocks,
// letting the backend detect gaps when blocks are lost.
func (b *Block[E]) ObjectOffset() uint64 { return b.offset }
