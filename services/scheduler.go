package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// schedulerMaxAttempts is how many times one run retries before waiting for
// the next tick.
const schedulerMaxAttempts = 3

// Job is one periodic server task (rotation sweep, elimination sweep).
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives the periodic jobs. Jobs keep no state beyond the
// documents they mutate, so a failed or skipped run is made up for by the
// next idempotent re-scan.
type Scheduler struct {
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers a job. Call before Start.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches one goroutine per job. Each runs immediately, then on its
// interval; a failing run is retried up to the attempt budget.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	log.Printf("⏱️ Scheduler job %q every %s", job.Name, job.Interval)

	s.runWithRetries(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("⏹️ Scheduler job %q stopped", job.Name)
			return
		case <-ticker.C:
			s.runWithRetries(ctx, job)
		}
	}
}

func (s *Scheduler) runWithRetries(ctx context.Context, job Job) {
	for attempt := 1; attempt <= schedulerMaxAttempts; attempt++ {
		err := job.Run(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("❌ Job %q attempt %d/%d failed: %v", job.Name, attempt, schedulerMaxAttempts, err)
	}
	log.Printf("🛑 Job %q exhausted retries, waiting for next tick", job.Name)
}
