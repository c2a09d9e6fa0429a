// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{
		"stream_id":  "s-1",
		"process_id": "p-1",
		"nb_objects": uint64(42),
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatal("deterministic encoding produced different bytes for the same value")
	}
}

func TestUnmarshalDefaultMapType(t *testing.T) {
	encoded, err := Marshal(map[string]any{"outer": map[string]any{"inner": "v"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("expected nested map[string]any, got %T", outer["outer"])
	}
}

func TestRoundTripStruct(t *testing.T) {
	type envelope struct {
		BlockID   string `cbor:"block_id"`
		NbObjects uint64 `cbor:"nb_objects"`
		Payload   []byte `cbor:"payload"`
	}

	in := envelope{BlockID: "b-1", NbObjects: 7, Payload: []byte{1, 2, 3}}
	encoded, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out envelope
	if err := Unmarshal(encoded, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.BlockID != in.BlockID || out.NbObjects != in.NbObjects || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}
