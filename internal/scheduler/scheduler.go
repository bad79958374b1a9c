// Package scheduler drives the two periodic background tasks: the
// short-interval submission poll and the once-daily streak pass.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of scheduled work. Implementations handle their own errors;
// the scheduler only drives timing.
type Task func(ctx context.Context)

// Scheduler runs an interval task and a daily task until its context is
// cancelled. It knows nothing about chat clients or stores; work arrives as
// injected callbacks.
type Scheduler struct {
	poll         Task
	daily        Task
	pollInterval time.Duration
	log          *slog.Logger
}

// New creates a Scheduler running poll every pollInterval and daily at 00:00
// UTC.
func New(poll, daily Task, pollInterval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		poll:         poll,
		daily:        daily,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Run starts both loops and blocks until ctx is cancelled. An in-flight task
// finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.runPollLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runDailyLoop(ctx)
	}()

	wg.Wait()
}

func (s *Scheduler) runPollLoop(ctx context.Context) {
	s.poll(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) runDailyLoop(ctx context.Context) {
	for {
		wait := untilNextMidnightUTC(time.Now().UTC())
		s.log.Info("next daily pass scheduled", "in", wait.Round(time.Minute).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.daily(ctx)
		}
	}
}

// untilNextMidnightUTC returns the duration from now until the next 00:00
// UTC, always positive.
func untilNextMidnightUTC(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}
