// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import "github.com/perfwire/perfwire/tracing"

// Wire forms of block dependencies. Every dependency is a
// self-describing map with a "kind" discriminator and the stable
// integer id that event objects reference.
type (
	wireStaticString struct {
		Kind  string `cbor:"kind"`
		ID    uint64 `cbor:"id"`
		Value string `cbor:"value"`
	}

	wireLogMetadata struct {
		Kind     string `cbor:"kind"`
		ID       uint64 `cbor:"id"`
		Level    uint8  `cbor:"level"`
		TargetID uint64 `cbor:"target_id"`
		FileID   uint64 `cbor:"file_id"`
		Line     uint32 `cbor:"line"`
	}

	wireMetricMetadata struct {
		Kind     string `cbor:"kind"`
		ID       uint64 `cbor:"id"`
		NameID   uint64 `cbor:"name_id"`
		UnitID   uint64 `cbor:"unit_id"`
		TargetID uint64 `cbor:"target_id"`
		FileID   uint64 `cbor:"file_id"`
		Line     uint32 `cbor:"line"`
		Lod      uint8  `cbor:"lod"`
	}

	wireSpanMetadata struct {
		Kind     string `cbor:"kind"`
		ID       uint64 `cbor:"id"`
		NameID   uint64 `cbor:"name_id"`
		TargetID uint64 `cbor:"target_id"`
		FileID   uint64 `cbor:"file_id"`
		Line     uint32 `cbor:"line"`
	}

	wireSpanLocation struct {
		Kind     string `cbor:"kind"`
		ID       uint64 `cbor:"id"`
		TargetID uint64 `cbor:"target_id"`
		FileID   uint64 `cbor:"file_id"`
		Line     uint32 `cbor:"line"`
	}

	wireProperty struct {
		KeyID   uint64 `cbor:"key_id"`
		ValueID uint64 `cbor:"value_id"`
	}

	wirePropertySet struct {
		Kind       string         `cbor:"kind"`
		ID         uint64         `cbor:"id"`
		Properties []wireProperty `cbor:"properties"`
	}
)

// Dependency kind discriminators, shared with the stream schema
// announced at stream registration.
const (
	kindStaticString = "static_string"
	kindLogDesc      = "log_desc"
	kindMetricDesc   = "metric_desc"
	kindSpanDesc     = "span_desc"
	kindSpanLocation = "span_location"
	kindPropertySet  = "property_set"
)

// dependencyExtractor collects the transitive dependency closure of a
// block's events, deduplicated by handle: across every producer that
// contributed to a block, each descriptor, string, and property set
// is serialized exactly once. Dependencies referenced by another
// dependency (a descriptor's target string) are emitted before their
// referrer, so the ingestion side can resolve ids in one pass.
type dependencyExtractor struct {
	seen map[uint64]struct{}
	deps []any
}

func newDependencyExtractor() *dependencyExtractor {
	return &dependencyExtractor{seen: make(map[uint64]struct{})}
}

// mark records the handle and reports whether it was already present.
func (x *dependencyExtractor) mark(handle uint64) bool {
	if _, ok := x.seen[handle]; ok {
		return true
	}
	x.seen[handle] = struct{}{}
	return false
}

func (x *dependencyExtractor) addString(s tracing.StaticString) {
	if s.Handle() == 0 || x.mark(s.Handle()) {
		return
	}
	x.deps = append(x.deps, wireStaticString{Kind: kindStaticString, ID: s.Handle(), Value: s.Value()})
}

func (x *dependencyExtractor) addPropertySet(set *tracing.PropertySet) {
	if set == nil || x.mark(set.Handle()) {
		return
	}
	properties := set.Properties()
	encoded := make([]wireProperty, 0, len(properties))
	for _, property := range properties {
		x.addString(property.Key)
		x.addString(property.Value)
		encoded = append(encoded, wireProperty{KeyID: property.Key.Handle(), ValueID: property.Value.Handle()})
	}
	x.deps = append(x.deps, wirePropertySet{Kind: kindPropertySet, ID: set.Handle(), Properties: encoded})
}

func (x *dependencyExtractor) addLogMetadata(desc *tracing.LogMetadata) {
	if x.mark(desc.Handle()) {
		return
	}
	x.addString(desc.Target)
	x.addString(desc.File)
	x.deps = append(x.deps, wireLogMetadata{
		Kind:     kindLogDesc,
		ID:       desc.Handle(),
		Level:    uint8(desc.Level),
		TargetID: desc.Target.Handle(),
		FileID:   desc.File.Handle(),
		Line:     desc.Line,
	})
}

func (x *dependencyExtractor) addMetricMetadata(desc *tracing.MetricMetadata) {
	if x.mark(desc.Handle()) {
		return
	}
	x.addString(desc.Name)
	x.addString(desc.Unit)
	x.addString(desc.Target)
	x.addString(desc.File)
	x.deps = append(x.deps, wireMetricMetadata{
		Kind:     kindMetricDesc,
		ID:       desc.Handle(),
		NameID:   desc.Name.Handle(),
		UnitID:   desc.Unit.Handle(),
		TargetID: desc.Target.Handle(),
		FileID:   desc.File.Handle(),
		Line:     desc.Line,
		Lod:      uint8(desc.Lod),
	})
}

func (x *dependencyExtractor) addSpanMetadata(desc *tracing.SpanMetadata) {
	if x.mark(desc.Handle()) {
		return
	}
	x.addString(desc.Name)
	x.addString(desc.Target)
	x.addString(desc.File)
	x.deps = append(x.deps, wireSpanMetadata{
		Kind:     kindSpanDesc,
		ID:       desc.Handle(),
		NameID:   desc.Name.Handle(),
		TargetID: desc.Target.Handle(),
		FileID:   desc.File.Handle(),
		Line:     desc.Line,
	})
}

func (x *dependencyExtractor) addSpanLocation(desc *tracing.SpanLocation) {
	if x.mark(desc.Handle()) {
		return
	}
	x.addString(desc.Target)
	x.addString(desc.File)
	x.deps = append(x.deps, wireSpanLocation{
		Kind:     kindSpanLocation,
		ID:       desc.Handle(),
		TargetID: desc.Target.Handle(),
		FileID:   desc.File.Handle(),
		Line:     desc.Line,
	})
}

// extractLogBlockDependencies walks a log block's events.
func extractLogBlockDependencies(block *tracing.LogBlock) []any {
	extractor := newDependencyExtractor()
	for _, event := range block.Events() {
		extractor.addLogMetadata(event.Desc)
		extractor.addPropertySet(event.Properties)
	}
	return extractor.deps
}

// extractMetricBlockDependencies walks a metric block's events.
func extractMetricBlockDependencies(block *tracing.MetricBlock) []any {
	extractor := newDependencyExtractor()
	for _, event := range block.Events() {
		switch e := event.(type) {
		case tracing.IntegerMetricEvent:
			extractor.addMetricMetadata(e.Desc)
			extractor.addPropertySet(e.Properties)
		case tracing.FloatMetricEvent:
			extractor.addMetricMetadata(e.Desc)
			extractor.addPropertySet(e.Properties)
		}
	}
	return extractor.deps
}

// extractThreadBlockDependencies walks a span block's events.
func extractThreadBlockDependencies(block *tracing.ThreadBlock) []any {
	extractor := newDependencyExtractor()
	for _, event := range block.Events() {
		switch e := event.(type) {
		case tracing.BeginSpanEvent:
			extractor.addSpanMetadata(e.Desc)
		case tracing.EndSpanEvent:
			extractor.addSpanMetadata(e.Desc)
		case tracing.BeginNamedSpanEvent:
			extractor.addSpanLocation(e.Desc)
			extractor.addString(e.Name)
		case tracing.EndNamedSpanEvent:
			extractor.addSpanLocation(e.Desc)
			extractor.addString(e.Name)
		}
	}
	return extractor.deps
}
