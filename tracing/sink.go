// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

// EventSink receives stream lifecycle notifications and filled blocks
// from a Dispatch. Implementations must not block the calling
// goroutine on network I/O: block callbacks run on the producer that
// filled the block, so anything beyond cheap CPU work (formatting,
// compression) belongs on a background worker.
//
// Ordering guarantee: OnStartup precedes every other callback, and
// OnInit<Category>Stream for a stream precedes the first
// On<Category>Block of that stream, by construction.
type EventSink interface {
	OnStartup(process *ProcessInfo)
	OnShutdown()

	OnInitLogStream(stream *LogStream)
	OnInitMetricStream(stream *MetricStream)
	OnInitThreadStream(stream *ThreadStream)

	OnLogBlock(stream *LogStream, block *LogBlock)
	OnMetricBlock(stream *MetricStream, block *MetricBlock)
	OnThreadBlock(stream *ThreadStream, block *ThreadBlock)

	// IsBusy reports whether the sink has undelivered work
	// outstanding. The flush monitor skips periodic flushes while
	// the sink is busy.
	IsBusy() bool
}

// NullSink discards everything. Useful as a default and in
// benchmarks that measure pure capture overhead.
type NullSink struct{}

func (NullSink) OnStartup(*ProcessInfo)                    {}
func (NullSink) OnShutdown()                               {}
func (NullSink) OnInitLogStream(*LogStream)                {}
func (NullSink) OnInitMetricStream(*MetricStream)          {}
func (NullSink) OnInitThreadStream(*ThreadStream)          {}
func (NullSink) OnLogBlock(*LogStream, *LogBlock)          {}
func (NullSink) OnMetricBlock(*MetricStream, *MetricBlock) {}
func (NullSink) OnThreadBlock(*ThreadStream, *ThreadBlock) {}
func (NullSink) IsBusy() bool                              { return false }
