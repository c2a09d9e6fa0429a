// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/perfwire/perfwire/lib/codec"
	"github.com/perfwire/perfwire/tracing"
)

// Wire forms of the three ingestion requests. Field names are the
// contract with the ingestion service; timestamps travel as
// RFC 3339 wall-clock strings paired with raw monotonic ticks.
type (
	insertProcessRequest struct {
		ProcessID       string            `cbor:"process_id"`
		ParentProcessID string            `cbor:"parent_process_id"`
		Exe             string            `cbor:"exe"`
		Username        string            `cbor:"username"`
		Realname        string            `cbor:"realname"`
		Computer        string            `cbor:"computer"`
		Distro          string            `cbor:"distro"`
		CPUBrand        string            `cbor:"cpu_brand"`
		TscFrequency    int64             `cbor:"tsc_frequency"`
		StartTime       string            `cbor:"start_time"`
		StartTicks      int64             `cbor:"start_ticks"`
		Properties      map[string]string `cbor:"properties"`
	}

	insertStreamRequest struct {
		StreamID             string            `cbor:"stream_id"`
		ProcessID            string            `cbor:"process_id"`
		DependenciesMetadata []string          `cbor:"dependencies_metadata"`
		ObjectsMetadata      []string          `cbor:"objects_metadata"`
		Tags                 []string          `cbor:"tags"`
		Properties           map[string]string `cbor:"properties"`
	}

	blockPayload struct {
		Dependencies []byte `cbor:"dependencies"`
		Objects      []byte `cbor:"objects"`
	}

	insertBlockRequest struct {
		BlockID      string       `cbor:"block_id"`
		StreamID     string       `cbor:"stream_id"`
		ProcessID    string       `cbor:"process_id"`
		BeginTime    string       `cbor:"begin_time"`
		BeginTicks   int64        `cbor:"begin_ticks"`
		EndTime      string       `cbor:"end_time"`
		EndTicks     int64        `cbor:"end_ticks"`
		ObjectOffset uint64       `cbor:"object_offset"`
		Payload      blockPayload `cbor:"payload"`
		NbObjects    uint64       `cbor:"nb_objects"`
	}
)

// Wire forms of block objects. Like dependencies, each object is a
// self-describing map with a "kind" discriminator; Desc and
// Properties reference dependency ids (0 means no property set).
type (
	wireLogEvent struct {
		Kind       string `cbor:"kind"`
		Desc       uint64 `cbor:"desc"`
		Properties uint64 `cbor:"properties,omitempty"`
		Ticks      int64  `cbor:"ticks"`
		Msg        string `cbor:"msg"`
	}

	wireIntegerMetricEvent struct {
		Kind       string `cbor:"kind"`
		Desc       uint64 `cbor:"desc"`
		Properties uint64 `cbor:"properties,omitempty"`
		Ticks      int64  `cbor:"ticks"`
		Value      uint64 `cbor:"value"`
	}

	wireFloatMetricEvent struct {
		Kind       string  `cbor:"kind"`
		Desc       uint64  `cbor:"desc"`
		Properties uint64  `cbor:"properties,omitempty"`
		Ticks      int64   `cbor:"ticks"`
		Value      float64 `cbor:"value"`
	}

	wireSpanEvent struct {
		Kind  string `cbor:"kind"`
		Desc  uint64 `cbor:"desc"`
		Name  uint64 `cbor:"name,omitempty"`
		Ticks int64  `cbor:"ticks"`
	}
)

// Object kind discriminators.
const (
	kindLogEvent       = "log"
	kindIntMetric      = "int_metric"
	kindFloatMetric    = "float_metric"
	kindBeginSpan      = "begin_span"
	kindEndSpan        = "end_span"
	kindBeginNamedSpan = "begin_named_span"
	kindEndNamedSpan   = "end_named_span"
)

func formatInsertProcessRequest(process *tracing.ProcessInfo) ([]byte, error) {
	body, err := codec.Marshal(insertProcessRequest{
		ProcessID:       process.ProcessID,
		ParentProcessID: process.ParentProcessID,
		Exe:             process.Exe,
		Username:        process.Username,
		Realname:        process.Username,
		Computer:        process.Computer,
		Distro:          process.Distro,
		CPUBrand:        process.CPUBrand,
		TscFrequency:    process.TscFrequency,
		StartTime:       process.StartTime.Time.UTC().Format(time.RFC3339Nano),
		StartTicks:      process.StartTime.Ticks,
		Properties:      process.Properties,
	})
	if err != nil {
		return nil, fmt.Errorf("encode insert_process: %w", err)
	}
	return body, nil
}

func formatInsertStreamRequest(streamID, processID string, dependencies, objects, tags []string, properties map[string]string) ([]byte, error) {
	body, err := codec.Marshal(insertStreamRequest{
		StreamID:             streamID,
		ProcessID:            processID,
		DependenciesMetadata: dependencies,
		ObjectsMetadata:      objects,
		Tags:                 tags,
		Properties:           properties,
	})
	if err != nil {
		return nil, fmt.Errorf("encode insert_stream: %w", err)
	}
	return body, nil
}

// Per-category stream schemas, announced at registration so the
// ingestion side knows which dependency and object kinds to expect.
var (
	logDependencyKinds    = []string{kindStaticString, kindLogDesc, kindPropertySet}
	logObjectKinds        = []string{kindLogEvent}
	metricDependencyKinds = []string{kindStaticString, kindMetricDesc, kindPropertySet}
	metricObjectKinds     = []string{kindIntMetric, kindFloatMetric}
	threadDependencyKinds = []string{kindStaticString, kindSpanDesc, kindSpanLocation}
	threadObjectKinds     = []string{kindBeginSpan, kindEndSpan, kindBeginNamedSpan, kindEndNamedSpan}
)

// formatBlockRequest assembles the block envelope: dependencies and
// objects are CBOR-encoded and compressed independently, then wrapped
// with identity and the time range on both clocks.
func formatBlockRequest(streamID, processID string, begin, end tracing.DualTime, objectOffset uint64, dependencies, objects []any, compression Compression) ([]byte, error) {
	dependencyBytes, err := codec.Marshal(dependencies)
	if err != nil {
		return nil, fmt.Errorf("encode block dependencies: %w", err)
	}
	compressedDependencies, err := compressPayload(dependencyBytes, compression)
	if err != nil {
		return nil, fmt.Errorf("compress block dependencies: %w", err)
	}

	objectBytes, err := codec.Marshal(objects)
	if err != nil {
		return nil, fmt.Errorf("encode block objects: %w", err)
	}
	compressedObjects, err := compressPayload(objectBytes, compression)
	if err != nil {
		return nil, fmt.Errorf("compress block objects: %w", err)
	}

	body, err := codec.Marshal(insertBlockRequest{
		BlockID:      uuid.NewString(),
		StreamID:     streamID,
		ProcessID:    processID,
		BeginTime:    begin.Time.UTC().Format(time.RFC3339Nano),
		BeginTicks:   begin.Ticks,
		EndTime:      end.Time.UTC().Format(time.RFC3339Nano),
		EndTicks:     end.Ticks,
		ObjectOffset: objectOffset,
		Payload: blockPayload{
			Dependencies: compressedDependencies,
			Objects:      compressedObjects,
		},
		NbObjects: uint64(len(objects)),
	})
	if err != nil {
		return nil, fmt.Errorf("encode insert_block: %w", err)
	}
	return body, nil
}

func propertySetHandle(set *tracing.PropertySet) uint64 {
	if set == nil {
		return 0
	}
	return set.Handle()
}

func logObjects(block *tracing.LogBlock) []any {
	objects := make([]any, 0, block.Len())
	for _, event := range block.Events() {
		objects = append(objects, wireLogEvent{
			Kind:       kindLogEvent,
			Desc:       event.Desc.Handle(),
			Properties: propertySetHandle(event.Properties),
			Ticks:      event.Ticks,
			Msg:        event.Msg,
		})
	}
	return objects
}

func metricObjects(block *tracing.MetricBlock) []any {
	objects := make([]any, 0, block.Len())
	for _, event := range block.Events() {
		switch e := event.(type) {
		case tracing.IntegerMetricEvent:
			objects = append(objects, wireIntegerMetricEvent{
				Kind:       kindIntMetric,
				Desc:       e.Desc.Handle(),
				Properties: propertySetHandle(e.Properties),
				Ticks:      e.Ticks,
				Value:      e.Value,
			})
		case tracing.FloatMetricEvent:
			objects = append(objects, wireFloatMetricEvent{
				Kind:       kindFloatMetric,
				Desc:       e.Desc.Handle(),
				Properties: propertySetHandle(e.Properties),
				Ticks:      e.Ticks,
				Value:      e.Value,
			})
		}
	}
	return objects
}

func threadObjects(block *tracing.ThreadBlock) []any {
	objects := make([]any, 0, block.Len())
	for _, event := range block.Events() {
		switch e := event.(type) {
		case tracing.BeginSpanEvent:
			objects = append(objects, wireSpanEvent{Kind: kindBeginSpan, Desc: e.Desc.Handle(), Ticks: e.Ticks})
		case tracing.EndSpanEvent:
			objects = append(objects, wireSpanEvent{Kind: kindEndSpan, Desc: e.Desc.Handle(), Ticks: e.Ticks})
		case tracing.BeginNamedSpanEvent:
			objects = append(objects, wireSpanEvent{Kind: kindBeginNamedSpan, Desc: e.Desc.Handle(), Name: e.Name.Handle(), Ticks: e.Ticks})
		case tracing.EndNamedSpanEvent:
			objects = append(objects, wireSpanEvent{Kind: kindEndNamedSpan, Desc: e.Desc.Handle(), Name: e.Name.Handle(), Ticks: e.Ticks})
		}
	}
	return objects
}
