// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/perfwire/perfwire/lib/clock"
	"github.com/perfwire/perfwire/tracing"
)

// HTTPEventSink ships telemetry to an ingestion service. Block
// callbacks encode and compress on the producing goroutine, then hand
// the finished body to a single background worker; the worker owns
// all network I/O, so producers never block on the wire.
type HTTPEventSink struct {
	config Config
	auth   Authenticator
	client *http.Client
	clk    clock.Clock
	logger *slog.Logger

	toggles  *Toggles
	sampling *SamplingController
	flusher  *FlushMonitor
	queue    *workQueue

	started  atomic.Bool
	stopping atomic.Bool
	done     chan struct{}
}

// NewHTTPEventSink creates a sink. A nil authenticator means
// unauthenticated delivery, a nil clock means real time, a nil logger
// means slog.Default. The worker does not run until Start.
func NewHTTPEventSink(cfg Config, auth Authenticator, clk clock.Clock, logger *slog.Logger) (*HTTPEventSink, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("event sink: %w", err)
	}
	if auth == nil {
		auth = NoopAuthenticator{}
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPEventSink{
		config:  cfg,
		auth:    auth,
		client:  &http.Client{},
		clk:     clk,
		logger:  logger,
		toggles: NewToggles(),
		queue:   newWorkQueue(),
		done:    make(chan struct{}),
	}
	s.sampling = NewSamplingController(SamplingConfig{
		Clock:                clk,
		Toggles:              s.toggles,
		SpikeFactor:          cfg.SpikeFactor,
		SpikeInflation:       cfg.SpikeInflation,
		RunningAverageWindow: cfg.RunningAverageWindow,
		MaxSampledRanges:     cfg.MaxSampledRanges,
		Retention:            cfg.FlushPeriod,
	})
	s.flusher = NewFlushMonitor(clk, cfg.FlushPeriod, func() bool {
		return s.queue.Size() > 0
	})
	return s, nil
}

// Start binds the sink to its dispatch and launches the delivery
// worker. Requests queued before Start (the process and stream
// registrations from tracing.NewDispatch) are delivered first, in
// order. Calling Start more than once is a no-op.
func (s *HTTPEventSink) Start(dispatch *tracing.Dispatch) {
	s.flusher.Bind(dispatch)
	if s.started.CompareAndSwap(false, true) {
		go s.run()
	}
}

// Toggles returns the runtime capture switches.
func (s *HTTPEventSink) Toggles() *Toggles { return s.toggles }

// Sampling returns the adaptive span sampling controller.
func (s *HTTPEventSink) Sampling() *SamplingController { return s.sampling }

// OnFrameBegin marks a frame boundary for spike detection. Call once
// per frame or work cycle from the host's main loop.
func (s *HTTPEventSink) OnFrameBegin() { s.sampling.Tick() }

// Flush forces all partially filled blocks out immediately.
func (s *HTTPEventSink) Flush() { s.flusher.Flush() }

// QueueSize returns the number of requests queued or in flight.
func (s *HTTPEventSink) QueueSize() int64 { return s.queue.Size() }

// IsBusy reports whether the delivery worker has pending requests.
func (s *HTTPEventSink) IsBusy() bool { return s.queue.Size() > 0 }

// OnStartup queues the process registration.
func (s *HTTPEventSink) OnStartup(process *tracing.ProcessInfo) {
	body, err := formatInsertProcessRequest(process)
	if err != nil {
		s.logger.Warn("dropping process registration", "error", err)
		return
	}
	s.queue.enqueue(workItem{kind: kindInsertProcess, body: body, timeout: s.config.ProcessTimeout})
}

// OnShutdown stops the delivery worker and blocks until it has
// drained the queue and exited. A no-op if the worker never started.
func (s *HTTPEventSink) OnShutdown() {
	if !s.started.Load() {
		return
	}
	s.stopping.Store(true)
	s.queue.notify()
	<-s.done
}

// OnInitLogStream queues the log stream registration.
func (s *HTTPEventSink) OnInitLogStream(stream *tracing.LogStream) {
	s.enqueueStreamRegistration(stream.StreamID(), stream.ProcessID(),
		logDependencyKinds, logObjectKinds, stream.Tags(), stream.Properties())
}

// OnInitMetricStream queues the metric stream registration.
func (s *HTTPEventSink) OnInitMetricStream(stream *tracing.MetricStream) {
	s.enqueueStreamRegistration(stream.StreamID(), stream.ProcessID(),
		metricDependencyKinds, metricObjectKinds, stream.Tags(), stream.Properties())
}

// OnInitThreadStream queues the thread stream registration.
func (s *HTTPEventSink) OnInitThreadStream(stream *tracing.ThreadStream) {
	s.enqueueStreamRegistration(stream.StreamID(), stream.ProcessID(),
		threadDependencyKinds, threadObjectKinds, stream.Tags(), stream.Properties())
}

func (s *HTTPEventSink) enqueueStreamRegistration(streamID, processID string, dependencies, objects, tags []string, properties map[string]string) {
	body, err := formatInsertStreamRequest(streamID, processID, dependencies, objects, tags, properties)
	if err != nil {
		s.logger.Warn("dropping stream registration", "stream_id", streamID, "error", err)
		return
	}
	s.queue.enqueue(workItem{kind: kindInsertStream, body: body, timeout: s.config.StreamTimeout})
}

// OnLogBlock encodes and queues a log block, if logs are enabled.
func (s *HTTPEventSink) OnLogBlock(stream *tracing.LogStream, block *tracing.LogBlock) {
	if !s.sampling.ShouldSampleLogBlock(block) {
		return
	}
	s.enqueueBlock(stream.StreamID(), stream.ProcessID(), block.Begin(), block.End(), block.ObjectOffset(),
		extractLogBlockDependencies(block), logObjects(block), s.config.BlockTimeout)
}

// OnMetricBlock encodes and queues a metric block, if metrics are
// enabled.
func (s *HTTPEventSink) OnMetricBlock(stream *tracing.MetricStream, block *tracing.MetricBlock) {
	if !s.sampling.ShouldSampleMetricBlock(block) {
		return
	}
	s.enqueueBlock(stream.StreamID(), stream.ProcessID(), block.Begin(), block.End(), block.ObjectOffset(),
		extractMetricBlockDependencies(block), metricObjects(block), s.config.BlockTimeout)
}

// OnThreadBlock encodes and queues a span block, subject to adaptive
// sampling.
func (s *HTTPEventSink) OnThreadBlock(stream *tracing.ThreadStream, block *tracing.ThreadBlock) {
	if !s.sampling.ShouldSampleThreadBlock(block) {
		return
	}
	s.enqueueBlock(stream.StreamID(), stream.ProcessID(), block.Begin(), block.End(), block.ObjectOffset(),
		extractThreadBlockDependencies(block), threadObjects(block), s.config.SpanBlockTimeout)
}

func (s *HTTPEventSink) enqueueBlock(streamID, processID string, begin, end tracing.DualTime, objectOffset uint64, dependencies, objects []any, timeout time.Duration) {
	body, err := formatBlockRequest(streamID, processID, begin, end, objectOffset, dependencies, objects, s.config.Compression)
	if err != nil {
		s.logger.Warn("dropping telemetry block", "stream_id", streamID, "error", err)
		return
	}
	s.queue.enqueue(workItem{kind: kindInsertBlock, body: body, timeout: timeout})
}

// run is the delivery worker loop: drain while credentials are ready,
// give the flush monitor a chance, then sleep until new work arrives
// or the next periodic flush is due.
func (s *HTTPEventSink) run() {
	defer close(s.done)
	for {
		if s.auth.IsReady() {
			for {
				item, ok := s.queue.dequeue()
				if !ok {
					break
				}
				s.send(item)
				s.queue.done()
			}
		}

		if s.stopping.Load() {
			return
		}

		wait := s.flusher.Tick()
		select {
		case <-s.queue.wakeChan():
		case <-s.clk.After(wait):
		}
	}
}

// send delivers one request. Each attempt builds a fresh HTTP request
// from the stored body; transport failures consume the retry budget
// and requeue at the tail, rejections are logged and abandoned.
func (s *HTTPEventSink) send(item workItem) {
	command := item.kind.command()

	ctx, cancel := context.WithTimeout(context.Background(), item.timeout)
	defer cancel()

	endpoint := strings.TrimSuffix(s.config.BaseURL, "/") + "/" + command
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(item.body))
	if err != nil {
		s.logger.Warn("dropping telemetry request", "command", command, "error", err)
		return
	}
	request.Header.Set("Content-Type", "application/cbor")

	if !s.auth.Sign(request) {
		s.logger.Warn("dropping unsigned telemetry request", "command", command)
		return
	}

	response, err := s.client.Do(request)
	if err != nil {
		if item.attempts < s.config.RetryBudget {
			item.attempts++
			s.queue.enqueue(item)
			s.logger.Debug("telemetry request failed, requeued",
				"command", command, "attempt", item.attempts, "error", err)
			return
		}
		s.logger.Warn("dropping telemetry request after transport failure",
			"command", command, "attempts", item.attempts+1, "error", err)
		return
	}
	io.Copy(io.Discard, response.Body)
	response.Body.Close()

	if response.StatusCode/100 != 2 {
		s.logger.Warn("telemetry request rejected",
			"command", command, "status", response.StatusCode)
	}
}
