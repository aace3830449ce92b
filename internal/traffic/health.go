package traffic

import "time"

// Status values reported by /health.
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusOverloaded   = "overloaded"
	StatusShuttingDown = "shutting-down"
)

// Thresholds drive Assess. Zero values disable the matching check.
type Thresholds struct {
	Window time.Duration
	// OverloadRequests is the request count per Window above which the service reports overloaded.
	OverloadRequests int
	// ErrorRate in [0,1] above which the service reports degraded.
	ErrorRate float64
	// MinRequests is the number of served requests required before ErrorRate is evaluated.
	MinRequests int
}

// Assess maps current counts onto a health status. Overloaded wins over degraded.
func (t *Tracker) Assess(th Thresholds) (string, Counts) {
	window := th.Window
	if window <= 0 {
		window = time.Minute
	}
	c := t.Counts(window)
	if th.OverloadRequests > 0 && c.Total() > th.OverloadRequests {
		return StatusOverloaded, c
	}
	if th.ErrorRate > 0 && c.Successes+c.Failures >= th.MinRequests && c.ErrorRate() > th.ErrorRate {
		return StatusDegraded, c
	}
	return StatusHealthy, c
}
