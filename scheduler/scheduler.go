package scheduler

import (
	"context"
	"sync"
	"time"

	"turtle-trader/logging"
)

// Scheduler drives the engine's session clock: shortly after each session
// open it fires AfterOpen (stop flags clear), then the pipeline pass, then
// BeforeClose (risk snapshot) ahead of the close. All three callbacks run
// under one mutex, so an overrunning cycle can never interleave with a
// trigger — the engine itself needs no locking.
type Scheduler struct {
	SessionLength time.Duration
	OpenDelay     time.Duration
	CycleDelay    time.Duration
	CloseLead     time.Duration

	AfterOpen   func()
	OnCycle     func()
	BeforeClose func()

	Logger logging.LoggerInterface

	mu sync.Mutex
}

// Run loops sessions until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	for session := 1; ; session++ {
		start := time.Now()
		s.Logger.Debug("Session %d open", session)

		if !s.sleepUntil(ctx, start.Add(s.OpenDelay)) {
			return
		}
		s.fire(s.AfterOpen)

		if !s.sleepUntil(ctx, start.Add(s.CycleDelay)) {
			return
		}
		s.fire(s.OnCycle)

		if !s.sleepUntil(ctx, start.Add(s.SessionLength-s.CloseLead)) {
			return
		}
		s.fire(s.BeforeClose)

		if !s.sleepUntil(ctx, start.Add(s.SessionLength)) {
			return
		}
	}
}

// fire runs one callback serialized against the others.
func (s *Scheduler) fire(f func()) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

// sleepUntil blocks until the deadline or cancellation; false means stop.
func (s *Scheduler) sleepUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
