// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/perfwire/perfwire/lib/hostinfo"
)

// ParentProcessEnv is the environment variable carrying the telemetry
// process identifier across process boundaries. A parent that launches
// children with its own identifier in this variable lets the backend
// reconstruct the process tree.
const ParentProcessEnv = "PERFWIRE_PARENT_PROCESS"

// tickFrequency is the tick rate of the process-local monotonic
// timeline: ticks are nanoseconds.
const tickFrequency = int64(time.Second / time.Nanosecond)

// ProcessInfo identifies one agent lifetime. Immutable after
// construction and freely shared across goroutines without locking;
// every outgoing request references it read-only.
type ProcessInfo struct {
	ProcessID       string
	ParentProcessID string
	Exe             string
	Username        string
	Computer        string
	Distro          string
	CPUBrand        string
	TscFrequency    int64
	StartTime       DualTime
	Properties      map[string]string
}

// NewProcessInfo builds the process descriptor: a fresh UUID, host
// identity probed via lib/hostinfo, the parent identifier inherited
// from the environment, and the caller's extra properties (build
// version and the like). The process's own identifier is re-exported
// to the environment so child processes inherit it.
func NewProcessInfo(properties map[string]string) *ProcessInfo {
	processID := uuid.NewString()
	parentID := os.Getenv(ParentProcessEnv)
	os.Setenv(ParentProcessEnv, processID)

	copied := make(map[string]string, len(properties))
	for key, value := range properties {
		copied[key] = value
	}

	return &ProcessInfo{
		ProcessID:       processID,
		ParentProcessID: parentID,
		Exe:             hostinfo.Executable(),
		Username:        hostinfo.Username(),
		Computer:        hostinfo.Computer(),
		Distro:          hostinfo.Distro(),
		CPUBrand:        hostinfo.CPUBrand(),
		TscFrequency:    tickFrequency,
		StartTime:       DualTime{Time: time.Now(), Ticks: 0},
		Properties:      copied,
	}
}
