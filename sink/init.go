// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"fmt"
	"log/slog"

	"github.com/perfwire/perfwire/tracing"
)

// Init is the one-call setup for a host process: it builds the HTTP
// sink, the capture dispatch, and the delivery worker, wired together.
// processProperties travel with the process registration (build
// version and the like). The caller owns the returned dispatch and
// must call its Shutdown on the way out.
func Init(cfg Config, auth Authenticator, logger *slog.Logger, processProperties map[string]string) (*tracing.Dispatch, *HTTPEventSink, error) {
	eventSink, err := NewHTTPEventSink(cfg, auth, nil, logger)
	if err != nil {
		return nil, nil, err
	}

	dispatch, err := tracing.NewDispatch(tracing.DispatchConfig{
		Process:             tracing.NewProcessInfo(processProperties),
		Sink:                eventSink,
		LogBlockCapacity:    eventSink.config.LogBlockCapacity,
		MetricBlockCapacity: eventSink.config.MetricBlockCapacity,
		ThreadBlockCapacity: eventSink.config.ThreadBlockCapacity,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}

	eventSink.Start(dispatch)
	return dispatch, eventSink, nil
}
