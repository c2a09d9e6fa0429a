// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Perfwire-demo is a synthetic workload that exercises the full
// capture and delivery path against a real ingestion endpoint
// (typically perfwire-ingest-mock). It simulates a frame loop with
// several worker goroutines, periodic log and metric traffic, and
// occasional artificially slow frames so adaptive span sampling has
// spikes to react to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/perfwire/perfwire/sink"
	"github.com/perfwire/perfwire/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "perfwire-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		baseURL    string
		token      string
		duration   time.Duration
		frameTime  time.Duration
		producers  int
		spikeEvery int
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML sink configuration")
	flag.StringVar(&baseURL, "url", "http://127.0.0.1:8090", "ingestion base URL (ignored with -config)")
	flag.StringVar(&token, "token", "", "bearer token for the ingestion service")
	flag.DurationVar(&duration, "duration", 30*time.Second, "how long to run the workload")
	flag.DurationVar(&frameTime, "frame-time", 16*time.Millisecond, "simulated frame duration")
	flag.IntVar(&producers, "producers", 4, "number of worker goroutines")
	flag.IntVar(&spikeEvery, "spike-every", 120, "inject a slow frame every N frames (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := sink.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.FlushPeriod = 5 * time.Second // report promptly for a short-lived demo
	if configPath != "" {
		loaded, err := sink.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var auth sink.Authenticator
	if token != "" {
		auth = sink.NewStaticTokenAuthenticator(token)
	}

	dispatch, eventSink, err := sink.Init(cfg, auth, logger, map[string]string{
		"build-version": "demo",
		"workload":      "perfwire-demo",
	})
	if err != nil {
		return err
	}
	defer dispatch.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	logger.Info("demo workload running",
		"ingest", cfg.BaseURL,
		"producers", producers,
		"duration", duration,
	)

	var wait sync.WaitGroup
	for i := 0; i < producers; i++ {
		wait.Add(1)
		go func(id int) {
			defer wait.Done()
			runProducer(ctx, dispatch, id, frameTime)
		}(i)
	}

	runFrameLoop(ctx, dispatch, eventSink, frameTime, spikeEvery)
	wait.Wait()

	logger.Info("demo workload finished", "queued", eventSink.QueueSize())
	return nil
}

// Frame-loop descriptors: registered once, referenced by every event.
var (
	demoTarget = tracing.InternString("demo")
	demoFile   = tracing.InternString("cmd/perfwire-demo/main.go")

	frameTimeMetric = tracing.NewMetricMetadata(
		tracing.InternString("frame_time"), tracing.InternString("ns"),
		demoTarget, demoFile, 0, tracing.VerbosityMin)
	queueDepthMetric = tracing.NewMetricMetadata(
		tracing.InternString("delivery_queue_depth"), tracing.InternString("count"),
		demoTarget, demoFile, 0, tracing.VerbosityMed)
	frameInfo  = tracing.NewLogMetadata(tracing.LevelInfo, demoTarget, demoFile, 0)
	frameSpan  = tracing.NewSpanMetadata(tracing.InternString("frame"), demoTarget, demoFile, 0)
	workerSpan = tracing.NewSpanMetadata(tracing.InternString("worker_job"), demoTarget, demoFile, 0)
	jobKind    = tracing.NewSpanLocation(demoTarget, demoFile, 0)
)

// runFrameLoop drives the simulated main thread: one span per frame,
// a frame-time metric, a spike-detection tick, and a deliberately slow
// frame every spikeEvery iterations.
func runFrameLoop(ctx context.Context, dispatch *tracing.Dispatch, eventSink *sink.HTTPEventSink, frameTime time.Duration, spikeEvery int) {
	mainThread := dispatch.NewThreadStream("main")

	frame := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		eventSink.OnFrameBegin()
		frameStart := time.Now()

		mainThread.BeginSpan(frameSpan)
		sleep := frameTime
		if spikeEvery > 0 && frame > 0 && frame%spikeEvery == 0 {
			sleep = frameTime * 6
			dispatch.Log(frameInfo, fmt.Sprintf("injected slow frame %d", frame))
		}
		time.Sleep(sleep)
		mainThread.EndSpan(frameSpan)

		dispatch.IntMetric(frameTimeMetric, uint64(time.Since(frameStart).Nanoseconds()))
		if frame%60 == 0 {
			dispatch.IntMetric(queueDepthMetric, uint64(eventSink.QueueSize()))
		}
		frame++
	}
}

// runProducer simulates one worker goroutine: named spans for varying
// job kinds with occasional contextualized logs.
func runProducer(ctx context.Context, dispatch *tracing.Dispatch, id int, frameTime time.Duration) {
	stream := dispatch.NewThreadStream(fmt.Sprintf("worker-%d", id))
	random := rand.New(rand.NewSource(int64(id)))

	jobNames := []tracing.StaticString{
		tracing.InternString("pathfinding"),
		tracing.InternString("animation"),
		tracing.InternString("streaming_io"),
	}
	properties := dispatch.PropertySet(map[string]string{
		"worker": fmt.Sprintf("worker-%d", id),
	})

	jobs := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		name := jobNames[random.Intn(len(jobNames))]
		stream.BeginNamedSpan(jobKind, name)
		stream.BeginSpan(workerSpan)
		time.Sleep(frameTime / 4)
		stream.EndSpan(workerSpan)
		stream.EndNamedSpan(jobKind, name)

		jobs++
		if jobs%100 == 0 {
			dispatch.LogWith(frameInfo, properties,
				fmt.Sprintf("worker %d completed %d jobs", id, jobs))
		}
	}
}
