// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"sync"
	"sync/atomic"
	"time"
)

// requestKind identifies the ingestion endpoint a payload targets.
type requestKind int

const (
	kindInsertProcess requestKind = iota
	kindInsertStream
	kindInsertBlock
)

// command returns the endpoint path segment for the kind.
func (k requestKind) command() string {
	switch k {
	case kindInsertProcess:
		return "insert_process"
	case kindInsertStream:
		return "insert_stream"
	case kindInsertBlock:
		return "insert_block"
	default:
		return "unknown"
	}
}

// workItem is one fully encoded request body awaiting delivery.
type workItem struct {
	kind     requestKind
	body     []byte
	timeout  time.Duration
	attempts int
}

// workQueue is an unbounded FIFO feeding the delivery worker. The
// size counter is maintained atomically alongside the slice so idle
// checks (the flush monitor, IsBusy) never contend with producers for
// the mutex; it is zero exactly when the queue is empty and no send
// is in flight.
type workQueue struct {
	mu    sync.Mutex
	items []workItem
	size  atomic.Int64
	wake  chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{wake: make(chan struct{}, 1)}
}

// enqueue appends an item and wakes the worker. The size counter is
// incremented before the item becomes visible so a drain that
// observes size zero has truly seen everything.
func (q *workQueue) enqueue(item workItem) {
	q.size.Add(1)
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.notify()
}

// notify wakes the worker without queueing anything (shutdown uses it
// to interrupt the wait).
func (q *workQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dequeue pops the oldest item. The size counter is decremented only
// after the caller finishes with the item, via done.
func (q *workQueue) dequeue() (item workItem, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return workItem{}, false
	}
	item = q.items[0]
	q.items[0] = workItem{}
	q.items = q.items[1:]
	return item, true
}

// done marks one dequeued item as fully processed.
func (q *workQueue) done() { q.size.Add(-1) }

// Size returns the number of items queued or in flight.
func (q *workQueue) Size() int64 { return q.size.Load() }

// wakeChan signals that new work may be available.
func (q *workQueue) wakeChan() <-chan struct{} { return q.wake }
