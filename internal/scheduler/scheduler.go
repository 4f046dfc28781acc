package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// JobFunc runs one poll cycle and returns the delay until the next run.
type JobFunc func(ctx context.Context) time.Duration

// Options tune scheduler behaviour.
type Options struct {
	// InitialDelay before the first run.
	InitialDelay time.Duration
	// Floor is the minimum delay between runs regardless of what the job
	// returns.
	Floor time.Duration
}

// Adaptive drives a job whose interval changes from run to run, the way a
// funding poll backs off when no event is near. Requeue cuts the current
// wait short so a configuration change takes effect immediately instead of
// waiting out the backoff.
type Adaptive struct {
	opts    Options
	logger  zerolog.Logger
	requeue chan struct{}
}

// New constructs an Adaptive scheduler.
func New(opts Options, logger zerolog.Logger) *Adaptive {
	if opts.Floor <= 0 {
		opts.Floor = time.Second
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = opts.Floor
	}
	return &Adaptive{
		opts:    opts,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		requeue: make(chan struct{}, 1),
	}
}

// Requeue requests the next run as soon as possible. Safe from any
// goroutine; repeated requests while one is pending coalesce.
func (a *Adaptive) Requeue() {
	select {
	case a.requeue <- struct{}{}:
	default:
	}
}

// Run blocks, invoking the job until ctx is cancelled. Jobs run strictly
// one at a time; a requeue arriving mid-run shortens only the next wait.
func (a *Adaptive) Run(ctx context.Context, job JobFunc) error {
	delay := a.opts.InitialDelay
	for {
		if delay < a.opts.Floor {
			delay = a.opts.Floor
		}

		timer := time.NewTimer(delay)
		a.logger.Debug().Dur("delay", delay).Msg("waiting for next run")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-a.requeue:
			timer.Stop()
			a.logger.Debug().Msg("requeued ahead of schedule")
		case <-timer.C:
		}

		delay = job(ctx)
	}
}
