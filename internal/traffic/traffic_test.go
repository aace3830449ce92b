package traffic

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker()
	tr.now = clock.now
	return tr, clock
}

// TestCounts_Empty verifies a fresh tracker reports no outcomes.
func TestCounts_Empty(t *testing.T) {
	tr, _ := newTestTracker()
	if c := tr.Counts(time.Minute); c.Total() != 0 {
		t.Errorf("Counts().Total() = %d, want 0", c.Total())
	}
}

// TestCounts_ByOutcome verifies each outcome lands in its own bucket.
func TestCounts_ByOutcome(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Record(Success)
	tr.Record(Success)
	tr.Record(Failure)
	tr.Record(Denied)
	c := tr.Counts(time.Minute)
	if c.Successes != 2 || c.Failures != 1 || c.Denials != 1 {
		t.Errorf("Counts() = %+v, want 2/1/1", c)
	}
	if c.Total() != 4 {
		t.Errorf("Total() = %d, want 4", c.Total())
	}
}

// TestCounts_WindowExcludesOldEvents verifies the sliding window cutoff.
func TestCounts_WindowExcludesOldEvents(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Record(Failure)
	clock.advance(90 * time.Second)
	tr.Record(Success)
	c := tr.Counts(time.Minute)
	if c.Failures != 0 || c.Successes != 1 {
		t.Errorf("Counts(1m) = %+v, want only the recent success", c)
	}
}

// TestRecord_PrunesBeyondRetention verifies old events are dropped from memory.
func TestRecord_PrunesBeyondRetention(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Record(Success)
	clock.advance(retention + time.Second)
	tr.Record(Success)
	if len(tr.events) != 1 {
		t.Errorf("events retained = %d, want 1", len(tr.events))
	}
}

// TestErrorRate_DeniedExcluded verifies denials do not count toward the error rate.
func TestErrorRate_DeniedExcluded(t *testing.T) {
	c := Counts{Successes: 1, Failures: 1, Denials: 10}
	if got := c.ErrorRate(); got != 0.5 {
		t.Errorf("ErrorRate() = %v, want 0.5", got)
	}
	if got := (Counts{}).ErrorRate(); got != 0 {
		t.Errorf("empty ErrorRate() = %v, want 0", got)
	}
}

func TestReset(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Record(Success)
	tr.Reset()
	if c := tr.Counts(time.Minute); c.Total() != 0 {
		t.Errorf("after Reset Total() = %d, want 0", c.Total())
	}
}

// TestAssess covers the status precedence.
func TestAssess(t *testing.T) {
	th := Thresholds{Window: time.Minute, OverloadRequests: 5, ErrorRate: 0.5, MinRequests: 2}
	tests := []struct {
		name     string
		outcomes []Outcome
		want     string
	}{
		{"empty", nil, StatusHealthy},
		{"mostly ok", []Outcome{Success, Success, Failure}, StatusHealthy},
		{"errors below min requests", []Outcome{Failure}, StatusHealthy},
		{"degraded", []Outcome{Failure, Failure, Success}, StatusDegraded},
		{"overloaded", []Outcome{Denied, Denied, Denied, Failure, Failure, Failure}, StatusOverloaded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker()
			for _, o := range tt.outcomes {
				tr.Record(o)
			}
			if got, _ := tr.Assess(th); got != tt.want {
				t.Errorf("Assess() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRecord_Concurrent exercises the tracker under the race detector.
func TestRecord_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(Success)
			_ = tr.Counts(time.Minute)
		}()
	}
	wg.Wait()
	if c := tr.Counts(time.Minute); c.Successes != 20 {
		t.Errorf("Successes = %d, want 20", c.Successes)
	}
}
