package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/store"
)

// DefaultMaxConcurrent bounds how many jobs may be processing at once.
const DefaultMaxConcurrent = 5

// Runner executes the full pipeline for one admitted job. Run must never
// panic across its boundary; any failure is recorded on the job itself.
type Runner interface {
	Run(ctx context.Context, job domain.Job)
}

// Scheduler is the admission controller: it decides when a queued job may
// start, enforcing a fixed concurrency ceiling with its own counter and
// lock, distinct from the job store's lock so capacity judgments never hold
// the store lock.
type Scheduler struct {
	jobs   *store.JobStore
	runner Runner
	logger *slog.Logger

	mu            sync.Mutex
	active        int
	maxConcurrent int

	wg sync.WaitGroup
}

// New creates a Scheduler. maxConcurrent <= 0 falls back to
// DefaultMaxConcurrent.
func New(jobs *store.JobStore, runner Runner, maxConcurrent int, logger *slog.Logger) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Scheduler{
		jobs:          jobs,
		runner:        runner,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// TryAdmitNext starts the oldest queued job if a capacity slot is free.
// It is called once after every submission and once after every job
// finishes; it is not a polling loop. The slot is reserved before the store
// scan and handed to the dispatched goroutine; if nothing is queued the
// reservation is undone.
func (s *Scheduler) TryAdmitNext(ctx context.Context) {
	s.mu.Lock()
	if s.active >= s.maxConcurrent {
		s.mu.Unlock()
		return
	}
	s.active++
	s.mu.Unlock()

	job, ok := s.jobs.ClaimOldestQueued()
	if !ok {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		return
	}

	s.logger.Info("job admitted", "job_id", job.ID, "active", s.Active())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(ctx)
		s.runner.Run(ctx, job)
	}()
}

// release frees the goroutine's capacity slot and immediately tries to admit
// the next queued job so a freed slot is reused without external polling.
// It runs unconditionally on the worker's defer path, success or failure.
func (s *Scheduler) release(ctx context.Context) {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	s.jobs.RecomputeQueuePositions()
	s.TryAdmitNext(ctx)
}

// Active returns the number of jobs currently holding a capacity slot.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// MaxConcurrent returns the concurrency ceiling.
func (s *Scheduler) MaxConcurrent() int {
	return s.maxConcurrent
}

// Drain blocks until every in-flight job has finished. Queued jobs that were
// never admitted stay queued; there is no cancellation of running work.
func (s *Scheduler) Drain() {
	s.wg.Wait()
}
