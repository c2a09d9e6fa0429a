// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"sync"
	"testing"
)

func TestWorkQueueFIFO(t *testing.T) {
	queue := newWorkQueue()
	for i := 0; i < 5; i++ {
		queue.enqueue(workItem{kind: kindInsertBlock, body: []byte{byte(i)}})
	}

	for i := 0; i < 5; i++ {
		item, ok := queue.dequeue()
		if !ok {
			t.Fatalf("dequeue %d: queue unexpectedly empty", i)
		}
		if item.body[0] != byte(i) {
			t.Fatalf("dequeue %d: got item %d, want %d", i, item.body[0], i)
		}
		queue.done()
	}

	if _, ok := queue.dequeue(); ok {
		t.Fatal("expected empty queue")
	}
	if got := queue.Size(); got != 0 {
		t.Fatalf("size after full drain = %d, want 0", got)
	}
}

func TestWorkQueueSizeCountsInFlight(t *testing.T) {
	queue := newWorkQueue()
	queue.enqueue(workItem{kind: kindInsertProcess})

	item, ok := queue.dequeue()
	if !ok {
		t.Fatal("expected one item")
	}
	// Dequeued but not done: still counted, so idle checks see the
	// in-flight send.
	if got := queue.Size(); got != 1 {
		t.Fatalf("size with in-flight item = %d, want 1", got)
	}
	_ = item
	queue.done()
	if got := queue.Size(); got != 0 {
		t.Fatalf("size after done = %d, want 0", got)
	}
}

func TestWorkQueueWakeSignal(t *testing.T) {
	queue := newWorkQueue()

	select {
	case <-queue.wakeChan():
		t.Fatal("wake channel fired with no enqueue")
	default:
	}

	queue.enqueue(workItem{kind: kindInsertStream})
	select {
	case <-queue.wakeChan():
	default:
		t.Fatal("enqueue did not wake")
	}
}

func TestWorkQueueConcurrentProducers(t *testing.T) {
	queue := newWorkQueue()
	const producers = 8
	const perProducer = 500

	var produce sync.WaitGroup
	for p := 0; p < producers; p++ {
		produce.Add(1)
		go func() {
			defer produce.Done()
			for i := 0; i < perProducer; i++ {
				queue.enqueue(workItem{kind: kindInsertBlock})
			}
		}()
	}

	consumed := 0
	doneProducing := make(chan struct{})
	go func() {
		produce.Wait()
		close(doneProducing)
	}()

	for {
		item, ok := queue.dequeue()
		if ok {
			_ = item
			queue.done()
			consumed++
			continue
		}
		select {
		case <-doneProducing:
			// One more pass catches items enqueued after the last
			// empty dequeue.
			if _, ok := queue.dequeue(); !ok {
				if consumed != producers*perProducer {
					t.Fatalf("consumed %d items, want %d", consumed, producers*perProducer)
				}
				if got := queue.Size(); got != 0 {
					t.Fatalf("final size = %d, want 0", got)
				}
				return
			}
			queue.done()
			consumed++
		default:
		}
	}
}
