// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink delivers captured telemetry blocks to a remote
// ingestion endpoint over HTTP. It implements tracing.EventSink:
// block callbacks run dependency extraction, CBOR encoding, and
// compression synchronously on the producing goroutine (cheap CPU
// work, no I/O), then queue the finished payload for a single
// background worker that performs authenticated sends with bounded
// retry.
//
// Delivery is best-effort: encoding failures drop the block with a
// local warning, transport failures are retried once, and rejected
// requests are logged and abandoned. Nothing in this package ever
// propagates an error back into a producer's call path.
package sink
