// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

// Perfwire-ingest-mock is a stand-in ingestion service for local
// development and integration tests. It accepts the agent's wire
// protocol exactly (insert_process, insert_stream, insert_block),
// stores everything in memory, and exposes a status endpoint so tests
// can verify telemetry was received and decoded.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/perfwire/perfwire/lib/codec"
	"github.com/perfwire/perfwire/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "perfwire-ingest-mock:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr string
		verbose    bool
	)
	flag.StringVar(&listenAddr, "listen", "127.0.0.1:8090", "address to listen on")
	flag.BoolVar(&verbose, "verbose", false, "log every decoded envelope")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := &ingestStore{logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /insert_process", store.handleInsertProcess)
	mux.HandleFunc("POST /insert_stream", store.handleInsertStream)
	mux.HandleFunc("POST /insert_block", store.handleInsertBlock)
	mux.HandleFunc("GET /status", store.handleStatus)

	server := &http.Server{Addr: listenAddr, Handler: mux}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.ListenAndServe()
	}()

	logger.Info("ingest mock running", "listen", listenAddr)

	select {
	case err := <-serveDone:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ingestStore holds decoded telemetry in memory for test assertions.
type ingestStore struct {
	logger *slog.Logger

	mu        sync.Mutex
	processes []map[string]any
	streams   []map[string]any
	blocks    []storedBlock

	processCount atomic.Uint64
	streamCount  atomic.Uint64
	blockCount   atomic.Uint64
	objectCount  atomic.Uint64
}

type storedBlock struct {
	StreamID     string `json:"stream_id"`
	BlockID      string `json:"block_id"`
	NbObjects    uint64 `json:"nb_objects"`
	ObjectOffset uint64 `json:"object_offset"`
	Dependencies int    `json:"dependencies"`
	Objects      int    `json:"objects"`
}

// decodeBody reads and CBOR-decodes a request body into a generic
// envelope map.
func decodeBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var envelope map[string]any
	if err := codec.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return envelope, nil
}

func (s *ingestStore) handleInsertProcess(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeBody(r)
	if err != nil {
		s.logger.Warn("bad insert_process", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.processes = append(s.processes, envelope)
	s.mu.Unlock()
	s.processCount.Add(1)

	s.logger.Debug("process registered",
		"process_id", envelope["process_id"],
		"exe", envelope["exe"],
		"computer", envelope["computer"],
	)
	w.WriteHeader(http.StatusOK)
}

func (s *ingestStore) handleInsertStream(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeBody(r)
	if err != nil {
		s.logger.Warn("bad insert_stream", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.streams = append(s.streams, envelope)
	s.mu.Unlock()
	s.streamCount.Add(1)

	s.logger.Debug("stream registered",
		"stream_id", envelope["stream_id"],
		"process_id", envelope["process_id"],
		"tags", envelope["tags"],
	)
	w.WriteHeader(http.StatusOK)
}

// decodePayload decompresses and CBOR-decodes one half of a block
// payload (dependencies or objects), detecting the codec from the
// frame magic.
func decodePayload(compressed []byte) ([]any, error) {
	compression, ok := sink.DetectCompression(compressed)
	if !ok {
		return nil, fmt.Errorf("unrecognized compression frame")
	}
	raw, err := sink.DecompressPayload(compressed, compression)
	if err != nil {
		return nil, err
	}
	var items []any
	if err := codec.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode payload items: %w", err)
	}
	return items, nil
}

func (s *ingestStore) handleInsertBlock(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeBody(r)
	if err != nil {
		s.logger.Warn("bad insert_block", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		http.Error(w, "missing payload", http.StatusBadRequest)
		return
	}
	compressedDependencies, _ := payload["dependencies"].([]byte)
	compressedObjects, _ := payload["objects"].([]byte)

	dependencies, err := decodePayload(compressedDependencies)
	if err != nil {
		s.logger.Warn("bad block dependencies", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	objects, err := decodePayload(compressedObjects)
	if err != nil {
		s.logger.Warn("bad block objects", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	block := storedBlock{
		Dependencies: len(dependencies),
		Objects:      len(objects),
	}
	block.StreamID, _ = envelope["stream_id"].(string)
	block.BlockID, _ = envelope["block_id"].(string)
	block.NbObjects, _ = envelope["nb_objects"].(uint64)
	block.ObjectOffset, _ = envelope["object_offset"].(uint64)

	if block.NbObjects != uint64(len(objects)) {
		s.logger.Warn("object count mismatch",
			"block_id", block.BlockID,
			"declared", block.NbObjects,
			"decoded", len(objects),
		)
		http.Error(w, "nb_objects does not match decoded payload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.blocks = append(s.blocks, block)
	s.mu.Unlock()
	s.blockCount.Add(1)
	s.objectCount.Add(block.NbObjects)

	s.logger.Debug("block ingested",
		"stream_id", block.StreamID,
		"objects", block.Objects,
		"dependencies", block.Dependencies,
		"offset", block.ObjectOffset,
	)
	w.WriteHeader(http.StatusOK)
}

func (s *ingestStore) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	blocks := make([]storedBlock, len(s.blocks))
	copy(blocks, s.blocks)
	s.mu.Unlock()

	status := struct {
		Processes uint64        `json:"processes"`
		Streams   uint64        `json:"streams"`
		Blocks    uint64        `json:"blocks"`
		Objects   uint64        `json:"objects"`
		Detail    []storedBlock `json:"detail"`
	}{
		Processes: s.processCount.Load(),
		Streams:   s.streamCount.Load(),
		Blocks:    s.blockCount.Load(),
		Objects:   s.objectCount.Load(),
		Detail:    blocks,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("status encode failed", "error", err)
	}
}
