// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hostinfo

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// kernelRelease returns the kernel release string from uname(2).
func kernelRelease() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return ""
	}
	return nullTerminated(utsname.Release[:])
}

// CPUBrand returns the CPU model name from /proc/cpuinfo, or the
// empty string if it cannot be read.
func CPUBrand() string {
	return readCPUModel("/proc/cpuinfo")
}

// readCPUModel extracts the first "model name" value from a cpuinfo
// file. Split out from CPUBrand so tests can point it at a fixture.
func readCPUModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "model name") {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		return strings.TrimSpace(value)
	}
	return ""
}

// nullTerminated converts a fixed-size C string buffer to a Go string.
func nullTerminated(buffer []byte) string {
	for i, b := range buffer {
		if b == 0 {
			return string(buffer[:i])
		}
	}
	return string(buffer)
}
