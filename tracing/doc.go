// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracing is the capture core of the telemetry agent: event
// types, interned descriptors, append-only blocks, per-category
// streams, and the Dispatch context that routes filled blocks to an
// EventSink.
//
// Producers append events through Dispatch (logs, metrics) or through
// a per-goroutine ThreadStream (spans). Appends never perform I/O and
// never block on the network: a filled block is swapped out and handed
// to the sink on the producing goroutine, where formatting is cheap
// CPU work and delivery is queued to a background worker.
//
// Descriptors (static strings, log/metric/span metadata, property
// sets) are registered once and carry stable integer handles. Handle
// identity is what the per-block dependency deduplication keys on, so
// call sites must register a descriptor once (typically in a package
// variable) and reuse it, never re-register per event.
package tracing
