// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

// LogLevel is the severity of a log event. Lower values are more
// severe. The numeric values are wire constants.
type LogLevel uint8

const (
	LevelFatal LogLevel = 1
	LevelError LogLevel = 2
	LevelWarn  LogLevel = 3
	LevelInfo  LogLevel = 4
	LevelDebug LogLevel = 5
	LevelTrace LogLevel = 6
)

// String returns the lowercase level name.
func (l LogLevel) String() string {
	switch l {
	case LevelFatal:
		return "fatal"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Verbosity is the level-of-detail of a metric. Min-verbosity metrics
// are cheap enough to record every frame; Max-verbosity metrics are
// only worth recording during focused investigations.
type Verbosity uint8

const (
	VerbosityMin Verbosity = 1
	VerbosityMed Verbosity = 2
	VerbosityMax Verbosity = 3
)
