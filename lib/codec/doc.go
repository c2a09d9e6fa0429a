// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec wraps fxamacker/cbor with the encoding configuration
// used for every wire payload: deterministic encoding on the way out,
// permissive decoding on the way in. Consumers import only this
// package, never the cbor library directly.
package codec
