// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import "fmt"

// RunningAverage computes the mean of the last N samples using a
// fixed-capacity circular buffer. Not safe for concurrent use; the
// sampling controller guards it with its own mutex.
type RunningAverage struct {
	samples []float64
	sum     float64
	next    int
	count   int
}

// NewRunningAverage creates an average over a window of the given
// sample count. The window must be positive.
func NewRunningAverage(window int) *RunningAverage {
	if window <= 0 {
		panic(fmt.Sprintf("sink: running average window must be positive, got %d", window))
	}
	return &RunningAverage{samples: make([]float64, window)}
}

// Add records a sample, evicting the oldest once the window is full.
func (r *RunningAverage) Add(sample float64) {
	if r.count == len(r.samples) {
		r.sum -= r.samples[r.next]
	} else {
		r.count++
	}
	r.samples[r.next] = sample
	r.sum += sample
	r.next = (r.next + 1) % len(r.samples)
}

// Average returns the mean of the recorded samples, or 0 when no
// sample has been recorded yet.
func (r *RunningAverage) Average() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

// Count returns the number of samples currently in the window.
func (r *RunningAverage) Count() int { return r.count }
