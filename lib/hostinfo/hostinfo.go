// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package hostinfo

import (
	"os"
	"os/user"
	"runtime"
)

// Executable returns the path of the running executable, or the empty
// string if it cannot be determined.
func Executable() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return path
}

// Username returns the name of the current user, or the empty string.
func Username() string {
	current, err := user.Current()
	if err != nil {
		return ""
	}
	return current.Username
}

// Computer returns the host name, or the empty string.
func Computer() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// Distro returns a human-readable OS identity string combining the
// platform name with the kernel release, e.g. "linux 6.12.0-fc".
func Distro() string {
	release := kernelRelease()
	if release == "" {
		return runtime.GOOS
	}
	return runtime.GOOS + " " + release
}
