// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import "sync/atomic"

// nextHandle allocates process-unique descriptor handles. Handle 0 is
// never issued, so it can mean "absent" on the wire.
var nextHandle atomic.Uint64

func newHandle() uint64 { return nextHandle.Add(1) }

// StaticString is an interned string with a stable integer handle.
// Events and metadata descriptors reference static strings by handle;
// the string bytes are serialized once per block no matter how many
// events reference them.
//
// Intern a given string once and reuse the value. Two InternString
// calls with the same text produce distinct handles, which defeats
// deduplication.
type StaticString struct {
	handle uint64
	value  string
}

// InternString registers value and returns its interned form.
func InternString(value string) StaticString {
	return StaticString{handle: newHandle(), value: value}
}

// Handle returns the stable identity of the interned string.
func (s StaticString) Handle() uint64 { return s.handle }

// Value returns the string text.
func (s StaticString) Value() string { return s.value }
