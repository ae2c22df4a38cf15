// This file contains the Task interface and the Runner that executes tasks within a
// bounded time slice. The slice interval should be a couple of seconds less than the
// hard limit of whatever context the runner executes in (an HTTP request handling a
// cron trigger, a scheduler tick, etc).

package slicer

import (
	"context"
	"time"

	"github.com/frankk00/gaetools/internal/log"
)

// DefaultMaxInterval is the default slice length. We really don't want a slice to
// outlive the request that triggered it, so this sits below typical request limits.
const DefaultMaxInterval = 25 * time.Second

// Task is a unit of background work that can be executed incrementally.
type Task interface {
	// Setup prepares any state the task needs before stepping. Expensive objects
	// should be created here rather than inside RunStep.
	Setup(ctx context.Context) error
	// RunStep performs one increment of work. It returns done == true when the
	// task has nothing further to do within this slice.
	RunStep(ctx context.Context) (done bool, err error)
	// Teardown cleans up anything created in Setup. It always runs, even when
	// Setup or RunStep failed.
	Teardown()
}

// Runner executes a Task in steps until the task reports completion or the slice
// interval is exhausted.
type Runner struct {
	maxInterval time.Duration
	logger      *log.Logger

	startTime     time.Time
	executionTime time.Duration
	steps         int
}

// NewRunner creates a Runner with the given slice interval. A non-positive
// interval falls back to DefaultMaxInterval.
func NewRunner(maxInterval time.Duration, logger *log.Logger) *Runner {
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}
	return &Runner{
		maxInterval: maxInterval,
		logger:      logger,
	}
}

// TimeRemaining returns the amount of time left in the current execution slice.
func (r *Runner) TimeRemaining() time.Duration {
	return time.Until(r.startTime.Add(r.maxInterval))
}

// ExecutionTime returns how long the last Run spent stepping the task.
func (r *Runner) ExecutionTime() time.Duration {
	return r.executionTime
}

// Steps returns the number of steps executed by the last Run.
func (r *Runner) Steps() int {
	return r.steps
}

// Run executes the task until it reports completion or the slice interval runs out.
// The context passed to Setup and RunStep carries a deadline at the end of the
// slice, so blocking calls inside a step are cut off with the slice.
func (r *Runner) Run(ctx context.Context, task Task) error {
	r.startTime = time.Now().UTC()
	r.executionTime = 0
	r.steps = 0

	sliceCtx, cancel := context.WithDeadline(ctx, r.startTime.Add(r.maxInterval))
	defer cancel()

	defer func() {
		r.logger.Debug("tearing down task")
		task.Teardown()
	}()

	r.logger.Debug("task setup initiated")
	if err := task.Setup(sliceCtx); err != nil {
		return err
	}

	done := false
	for !done && r.TimeRemaining() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		done, err = task.RunStep(sliceCtx)
		r.steps++
		r.executionTime = time.Since(r.startTime)
		if err != nil {
			return err
		}
	}

	r.logger.Debugf("task slice finished, done=%v, steps=%d, execution time %s", done, r.steps, r.executionTime)
	return nil
}
