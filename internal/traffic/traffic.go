// Package traffic keeps sliding-window request outcomes for the health endpoint and rate-limit gauges.
package traffic

import (
	"sync"
	"time"
)

// Outcome is the result class of one API request.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Denied
)

// retention bounds how long outcomes are kept regardless of the windows callers ask about.
const retention = 5 * time.Minute

type event struct {
	at      time.Time
	outcome Outcome
}

// Counts is a snapshot of outcomes inside one window.
type Counts struct {
	Successes int
	Failures  int
	Denials   int
}

// Total returns successes + failures + denials.
func (c Counts) Total() int { return c.Successes + c.Failures + c.Denials }

// ErrorRate returns failures / (successes + failures). Denials are excluded.
func (c Counts) ErrorRate() float64 {
	served := c.Successes + c.Failures
	if served == 0 {
		return 0
	}
	return float64(c.Failures) / float64(served)
}

// Tracker records request outcomes in time order. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends an outcome stamped with the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// Counts returns the outcomes recorded within the last window.
func (t *Tracker) Counts(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	var c Counts
	for i := len(t.events) - 1; i >= 0; i-- {
		e := t.events[i]
		if e.at.Before(cutoff) {
			break
		}
		switch e.outcome {
		case Success:
			c.Successes++
		case Failure:
			c.Failures++
		case Denied:
			c.Denials++
		}
	}
	return c
}

// Reset drops every recorded outcome.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
