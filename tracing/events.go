// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

// Event is implemented by every capturable event type. The size
// estimate drives block fullness accounting; it approximates the
// serialized footprint, it does not need to be exact.
type Event interface {
	approximateSize() int
}

// Approximate serialized size of the fixed part of each event kind:
// descriptor handle, optional property-set handle, tick stamp, value.
const (
	logEventBaseSize = 40
	metricEventSize  = 40
	spanEventSize    = 24
)

// LogEvent is one log message. Desc identifies the call site;
// Properties is nil when the event carries no context.
type LogEvent struct {
	Desc       *LogMetadata
	Properties *PropertySet
	Ticks      int64
	Msg        string
}

func (e LogEvent) approximateSize() int { return logEventBaseSize + len(e.Msg) }

// MetricEvent is the closed set of metric event kinds.
type MetricEvent interface {
	Event
	metricEvent()
}

// IntegerMetricEvent records an integer measurement.
type IntegerMetricEvent struct {
	Desc       *MetricMetadata
	Properties *PropertySet
	Value      uint64
	Ticks      int64
}

func (IntegerMetricEvent) metricEvent()           {}
func (e IntegerMetricEvent) approximateSize() int { return metricEventSize }

// FloatMetricEvent records a floating-point measurement.
type FloatMetricEvent struct {
	Desc       *MetricMetadata
	Properties *PropertySet
	Value      float64
	Ticks      int64
}

func (FloatMetricEvent) metricEvent()           {}
func (e FloatMetricEvent) approximateSize() int { return metricEventSize }

// ThreadEvent is the closed set of span event kinds captured on a
// thread stream.
type ThreadEvent interface {
	Event
	threadEvent()
}

// BeginSpanEvent marks the start of a span with a fixed name.
type BeginSpanEvent struct {
	Desc  *SpanMetadata
	Ticks int64
}

func (BeginSpanEvent) threadEvent()           {}
func (e BeginSpanEvent) approximateSize() int { return spanEventSize }

// EndSpanEvent marks the end of a span with a fixed name.
type EndSpanEvent struct {
	Desc  *SpanMetadata
	Ticks int64
}

func (EndSpanEvent) threadEvent()           {}
func (e EndSpanEvent) approximateSize() int { return spanEventSize }

// BeginNamedSpanEvent marks the start of a span whose name is chosen
// at runtime from a shared location descriptor.
type BeginNamedSpanEvent struct {
	Desc  *SpanLocation
	Name  StaticString
	Ticks int64
}

func (BeginNamedSpanEvent) threadEvent()           {}
func (e BeginNamedSpanEvent) approximateSize() int { return spanEventSize + 8 }

// EndNamedSpanEvent marks the end of a named span.
type EndNamedSpanEvent struct {
	Desc  *SpanLocation
	Name  StaticString
	Ticks int64
}

func (EndNamedSpanEvent) threadEvent()           {}
func (e EndNamedSpanEvent) approximateSize() int { return spanEventSize + 8 }
