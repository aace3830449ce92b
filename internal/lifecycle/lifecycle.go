// Package lifecycle tracks process start and drain state for health reporting and shutdown.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// State is shared between the signal handler in main and the /health handler.
type State struct {
	started      time.Time
	shuttingDown atomic.Bool
	now          func() time.Time
}

// New returns a State started at the current time.
func New() *State {
	return &State{started: time.Now(), now: time.Now}
}

// BeginShutdown marks the process as draining. /health reports shutting-down from here on.
func (s *State) BeginShutdown() {
	s.shuttingDown.Store(true)
}

// ShuttingDown reports whether BeginShutdown was called. A nil State is never shutting down.
func (s *State) ShuttingDown() bool {
	if s == nil {
		return false
	}
	return s.shuttingDown.Load()
}

// Uptime returns the time since New.
func (s *State) Uptime() time.Duration {
	if s == nil {
		return 0
	}
	return s.now().Sub(s.started)
}
