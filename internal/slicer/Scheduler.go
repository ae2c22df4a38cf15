// This file contains the Scheduler, which runs named jobs at fixed intervals.
// Jobs run on their own goroutine; ticks that fire while a run is still in flight
// are dropped, so a slow run never stacks up behind itself.
//
// The stop channel and waitgroup are used for graceful shutdown, in the same way
// the broker consumers are managed in the services package.

package slicer

import (
	"context"
	"sync"
	"time"

	"github.com/frankk00/gaetools/internal/log"
)

// JobFunc is the work a scheduled job performs on each tick.
type JobFunc func(ctx context.Context) error

type scheduledJob struct {
	name     string
	interval time.Duration
	run      JobFunc
}

type Scheduler struct {
	jobs   []scheduledJob
	logger *log.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(logger *log.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Add registers a job to be run every interval. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, run JobFunc) {
	s.jobs = append(s.jobs, scheduledJob{name: name, interval: interval, run: run})
}

// Start launches one goroutine per registered job.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}
	s.logger.Infof("scheduler started with %d jobs", len(s.jobs))
}

func (s *Scheduler) runJob(job scheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.logger.Infof("stopping scheduled job %s", job.name)
			return
		case <-ticker.C:
			// a tick during a run is simply not read, which gives us overlap-skip
			if err := job.run(s.ctx); err != nil {
				s.logger.Errorf("scheduled job %s failed: %v", job.name, err)
			}
		}
	}
}

// Stop cancels in-flight runs and waits for all job goroutines to exit.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
