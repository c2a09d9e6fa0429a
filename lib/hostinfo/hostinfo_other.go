// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package hostinfo

// kernelRelease is unavailable off Linux; Distro falls back to the
// bare platform name.
func kernelRelease() string { return "" }

// CPUBrand is unavailable off Linux.
func CPUBrand() string { return "" }
