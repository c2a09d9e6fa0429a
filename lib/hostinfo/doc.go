// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostinfo probes host identity for the telemetry process
// descriptor: executable path, user, hostname, OS distribution string,
// and CPU model. Every probe is best-effort: a field that cannot be
// read is reported as the empty string rather than an error, since
// process registration must succeed on stripped-down hosts.
package hostinfo
