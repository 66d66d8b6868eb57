// Package scheduler runs the periodic background jobs, most notably the
// live quote refresh that keeps open portfolio views current.
package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

type taskFn func(ctx context.Context) error

// Scheduler wraps gocron with panic recovery per job.
type Scheduler struct {
	scheduler gocron.Scheduler
	log       zerolog.Logger
}

// New creates a stopped scheduler.
func New(log zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		scheduler: s,
		log:       log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() {
	_ = s.scheduler.Shutdown()
}

// NewIntervalJob registers a fixed-interval job. Overlapping runs are
// rescheduled rather than stacked.
func (s *Scheduler) NewIntervalJob(name string, fn taskFn, interval time.Duration, startImmediately bool) error {
	opts := []gocron.JobOption{gocron.WithSingletonMode(gocron.LimitModeReschedule)}
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.taskWithRecover(fn, name)),
		opts...,
	)
	return err
}

func (s *Scheduler) taskWithRecover(fn taskFn, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job", jobName).Any("panic", r).
					Str("stack", string(debug.Stack())).Msg("panic recovered in scheduler job")
			}
		}()
		if err := fn(ctx); err != nil {
			s.log.Warn().Str("job", jobName).Err(err).Msg("job failed")
		}
	}
}
