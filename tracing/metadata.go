// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

// LogMetadata describes a log call site: severity, subsystem target,
// and source location. Register once per call site and reuse; the
// descriptor is serialized once per block regardless of how many
// events reference it.
type LogMetadata struct {
	handle uint64
	Level  LogLevel
	Target StaticString
	File   StaticString
	Line   uint32
}

// NewLogMetadata registers a log call-site descriptor.
func NewLogMetadata(level LogLevel, target, file StaticString, line uint32) *LogMetadata {
	return &LogMetadata{handle: newHandle(), Level: level, Target: target, File: file, Line: line}
}

// Handle returns the descriptor's stable identity.
func (m *LogMetadata) Handle() uint64 { return m.handle }

// MetricMetadata describes a metric series: name, unit, subsystem
// target, source location, and verbosity.
type MetricMetadata struct {
	handle uint64
	Name   StaticString
	Unit   StaticString
	Target StaticString
	File   StaticString
	Line   uint32
	Lod    Verbosity
}

// NewMetricMetadata registers a metric series descriptor.
func NewMetricMetadata(name, unit, target, file StaticString, line uint32, lod Verbosity) *MetricMetadata {
	return &MetricMetadata{handle: newHandle(), Name: name, Unit: unit, Target: target, File: file, Line: line, Lod: lod}
}

// Handle returns the descriptor's stable identity.
func (m *MetricMetadata) Handle() uint64 { return m.handle }

// SpanMetadata describes a span call site with a fixed name.
type SpanMetadata struct {
	handle uint64
	Name   StaticString
	Target StaticString
	File   StaticString
	Line   uint32
}

// NewSpanMetadata registers a span call-site descriptor.
func NewSpanMetadata(name, target, file StaticString, line uint32) *SpanMetadata {
	return &SpanMetadata{handle: newHandle(), Name: name, Target: target, File: file, Line: line}
}

// Handle returns the descriptor's stable identity.
func (m *SpanMetadata) Handle() uint64 { return m.handle }

// SpanLocation describes a span call site whose name is supplied per
// event (named spans). The location is shared across names.
type SpanLocation struct {
	handle uint64
	Target StaticString
	File   StaticString
	Line   uint32
}

// NewSpanLocation registers a named-span location descriptor.
func NewSpanLocation(target, file StaticString, line uint32) *SpanLocation {
	return &SpanLocation{handle: newHandle(), Target: target, File: file, Line: line}
}

// Handle returns the descriptor's stable identity.
func (l *SpanLocation) Handle() uint64 { return l.handle }
