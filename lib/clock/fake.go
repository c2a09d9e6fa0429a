// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake is a Clock whose time only moves when a test calls Advance or
// SetNow. After channels fire when the fake time passes their
// deadline. Sleep returns immediately (a sleeping goroutine in a test
// would otherwise deadlock against a clock that never moves on its
// own).
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewFake returns a Fake clock starting at an arbitrary fixed epoch.
func NewFake() *Fake {
	return &Fake{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that fires once the fake time has advanced
// past d from now. If d <= 0 the channel fires immediately.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.waiters = append(f.waiters, &fakeWaiter{deadline: f.now.Add(d), ch: ch})
	return ch
}

// Sleep returns immediately. See the type comment.
func (f *Fake) Sleep(d time.Duration) {}

// Advance moves the fake time forward by d and fires every After
// channel whose deadline has been reached.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.fireDueLocked()
}

// SetNow jumps the fake time to t. Time never moves backward: if t is
// before the current fake time, SetNow panics.
func (f *Fake) SetNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Before(f.now) {
		panic("clock: SetNow would move fake time backward")
	}
	f.now = t
	f.fireDueLocked()
}

func (f *Fake) fireDueLocked() {
	remaining := f.waiters[:0]
	for _, waiter := range f.waiters {
		if !waiter.deadline.After(f.now) {
			waiter.ch <- f.now
			continue
		}
		remaining = append(remaining, waiter)
	}
	f.waiters = remaining
}
