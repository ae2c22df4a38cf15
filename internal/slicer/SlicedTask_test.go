package slicer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frankk00/gaetools/internal/log"
)

type countingTask struct {
	stepsUntilDone int
	steps          int
	setupCalled    bool
	teardownCalled bool
	stepErr        error
	stepDelay      time.Duration
}

func (t *countingTask) Setup(ctx context.Context) error {
	t.setupCalled = true
	return nil
}

func (t *countingTask) RunStep(ctx context.Context) (bool, error) {
	if t.stepErr != nil {
		return false, t.stepErr
	}
	if t.stepDelay > 0 {
		time.Sleep(t.stepDelay)
	}
	t.steps++
	return t.steps >= t.stepsUntilDone, nil
}

func (t *countingTask) Teardown() {
	t.teardownCalled = true
}

func TestRunnerRunsUntilTaskComplete(t *testing.T) {
	task := &countingTask{stepsUntilDone: 3}
	runner := NewRunner(time.Second, log.NewNop())

	if err := runner.Run(context.Background(), task); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if task.steps != 3 {
		t.Errorf("expected 3 steps, got %d", task.steps)
	}
	if !task.setupCalled || !task.teardownCalled {
		t.Error("expected setup and teardown to be called")
	}
	if runner.Steps() != 3 {
		t.Errorf("expected runner to record 3 steps, got %d", runner.Steps())
	}
}

func TestRunnerStopsWhenSliceExhausted(t *testing.T) {
	// a task that never completes, stepping slowly against a short slice
	task := &countingTask{stepsUntilDone: 1 << 30, stepDelay: 20 * time.Millisecond}
	runner := NewRunner(50*time.Millisecond, log.NewNop())

	if err := runner.Run(context.Background(), task); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if task.steps == 0 {
		t.Error("expected at least one step to run")
	}
	if task.steps > 10 {
		t.Errorf("expected the slice to cut execution short, got %d steps", task.steps)
	}
	if !task.teardownCalled {
		t.Error("expected teardown to run when the slice is exhausted")
	}
}

func TestRunnerTeardownRunsOnStepError(t *testing.T) {
	stepErr := errors.New("step failed")
	task := &countingTask{stepErr: stepErr}
	runner := NewRunner(time.Second, log.NewNop())

	err := runner.Run(context.Background(), task)
	if !errors.Is(err, stepErr) {
		t.Fatalf("expected step error, got %v", err)
	}
	if !task.teardownCalled {
		t.Error("expected teardown to run after a step error")
	}
}

func TestRunnerHonoursCancelledContext(t *testing.T) {
	task := &countingTask{stepsUntilDone: 1 << 30}
	runner := NewRunner(time.Second, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, task)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunnerSliceContextCarriesDeadline(t *testing.T) {
	runner := NewRunner(time.Second, log.NewNop())

	var sawDeadline atomic.Bool
	task := &funcTask{
		step: func(ctx context.Context) (bool, error) {
			_, ok := ctx.Deadline()
			sawDeadline.Store(ok)
			return true, nil
		},
	}

	if err := runner.Run(context.Background(), task); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !sawDeadline.Load() {
		t.Error("expected the step context to carry the slice deadline")
	}
}

type funcTask struct {
	step func(ctx context.Context) (bool, error)
}

func (t *funcTask) Setup(ctx context.Context) error           { return nil }
func (t *funcTask) RunStep(ctx context.Context) (bool, error) { return t.step(ctx) }
func (t *funcTask) Teardown()                                 {}

func TestSchedulerRunsJobs(t *testing.T) {
	scheduler := NewScheduler(log.NewNop())

	var runs atomic.Int32
	scheduler.Add("counter", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	scheduler.Start()
	time.Sleep(100 * time.Millisecond)
	scheduler.Stop()

	if runs.Load() == 0 {
		t.Error("expected the scheduled job to have run")
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	scheduler := NewScheduler(log.NewNop())

	var runs atomic.Int32
	scheduler.Add("slow", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		time.Sleep(60 * time.Millisecond)
		return nil
	})

	scheduler.Start()
	time.Sleep(100 * time.Millisecond)
	scheduler.Stop()

	// with overlap-skip a 60ms job on a 10ms interval can only complete a few runs
	if got := runs.Load(); got > 4 {
		t.Errorf("expected overlapping ticks to be skipped, got %d runs", got)
	}
}
