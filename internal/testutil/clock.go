// Package testutil provides deterministic test doubles for the sync
// engine's time dependencies.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/duoplan/duoplan/internal/engine"
)

// ManualClock is a deterministic engine.Clock driven by Advance instead of
// wall time. Debounce tests use it to fire (or prove the restart of) the
// quiet-period timer without sleeping.
//
// Thread-safety: all methods are safe for concurrent use. Timer callbacks
// run synchronously inside Advance, on the caller's goroutine, with no
// internal locks held.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	id       int
	deadline time.Time
	fn       func()
}

// NewManualClock creates a clock starting at a fixed, arbitrary instant.
func NewManualClock() *ManualClock {
	return &ManualClock{
		now:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		timers: make(map[int]*manualTimer),
	}
}

// Now implements engine.Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements engine.Clock. The callback fires during a future
// Advance whose cumulative offset reaches the deadline.
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) engine.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{
		clock:    c,
		id:       c.nextID,
		deadline: c.now.Add(d),
		fn:       fn,
	}
	c.nextID++
	c.timers[t.id] = t
	return t
}

// Stop implements engine.Timer.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if _, ok := t.clock.timers[t.id]; !ok {
		return false
	}
	delete(t.clock.timers, t.id)
	return true
}

// Advance moves the clock forward and fires every timer whose deadline is
// reached, in deadline order. Callbacks run without the clock lock held, so
// they may schedule new timers; timers scheduled during Advance fire only
// if their deadline still falls within the advanced window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		due := c.dueBefore(target)
		if due == nil {
			break
		}
		if due.deadline.After(c.now) {
			c.now = due.deadline
		}
		delete(c.timers, due.id)
		fn := due.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// Pending reports the number of armed timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// dueBefore returns the earliest timer at or before target, or nil.
// Caller holds the lock.
func (c *ManualClock) dueBefore(target time.Time) *manualTimer {
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.deadline.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}
