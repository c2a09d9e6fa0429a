// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that the flush
// monitor, delivery worker, and sampling controller can be tested
// with deterministic time control.
package clock
