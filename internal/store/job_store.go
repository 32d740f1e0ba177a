package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/domain"
)

// DefaultRetentionLimit is the number of terminal (completed/error) jobs kept
// for polling before the oldest are evicted.
const DefaultRetentionLimit = 20

// TerminalFields carries the write-once fields recorded when a job reaches a
// terminal state.
type TerminalFields struct {
	ResultFilename  string
	EnhancedRequest string
	ErrorMessage    string
}

// CreateParams holds everything needed to allocate a new job record.
type CreateParams struct {
	Request     string
	Optimize    bool
	Consistency bool
	Settings    domain.Settings
	Character   *domain.CharacterBinding
}

// JobStore is the thread-safe owner of all job records. All mutations are
// serialized by a single write lock; readers receive snapshots (copies) so
// polling never observes a half-written record. Queued and processing
// records are never evicted.
type JobStore struct {
	mu             sync.RWMutex
	jobs           map[uuid.UUID]*domain.Job
	order          []uuid.UUID // insertion order
	defaults       domain.Settings
	retentionLimit int
	logger         *slog.Logger
}

// NewJobStore creates an empty job store. retentionLimit <= 0 falls back to
// DefaultRetentionLimit.
func NewJobStore(defaults domain.Settings, retentionLimit int, logger *slog.Logger) *JobStore {
	if retentionLimit <= 0 {
		retentionLimit = DefaultRetentionLimit
	}
	return &JobStore{
		jobs:           make(map[uuid.UUID]*domain.Job),
		defaults:       defaults,
		retentionLimit: retentionLimit,
		logger:         logger,
	}
}

// Create allocates a fresh job in the queued state, ranks it behind the
// jobs already waiting, inserts it, and then evicts the oldest terminal
// records beyond the retention limit. Out-of-range settings are clamped,
// not rejected; the only failure mode is an invalid (empty) request.
func (s *JobStore) Create(params CreateParams) (domain.Job, error) {
	job, err := domain.NewJob(
		params.Request,
		params.Optimize,
		params.Consistency,
		params.Settings,
		s.defaults,
		params.Character,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to create job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Queue positions are a contiguous zero-based rank among queued
	// records only; in-flight jobs hold no rank.
	waiting := 0
	for _, id := range s.order {
		if s.jobs[id].Status == domain.JobStatusQueued {
			waiting++
		}
	}
	job.QueuePosition = waiting

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)

	s.sweepLocked()

	s.logger.Info("job created",
		"job_id", job.ID,
		"queue_position", job.QueuePosition,
		"optimize", job.Optimize,
		"consistency", job.Consistency)

	return *job, nil
}

// Get returns a snapshot of the job with the given ID.
func (s *JobStore) Get(id uuid.UUID) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs in insertion order.
func (s *JobStore) List() []domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.jobs[id])
	}
	return out
}

// Counts returns how many jobs are currently processing and queued.
func (s *JobStore) Counts() (processing, queued int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		switch job.Status {
		case domain.JobStatusProcessing:
			processing++
		case domain.JobStatusQueued:
			queued++
		}
	}
	return processing, queued
}

// UpdateProgress publishes a job's progress step and stage label. It is a
// no-op if the job does not exist; only the owning worker goroutine calls it.
func (s *JobStore) UpdateProgress(id uuid.UUID, step int, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.ProgressStep = step
	job.Stage = stage
}

// SetProgressTotal adjusts a job's expected step count, used when a
// character binding overrides the step setting after admission. No-op if
// the job does not exist.
func (s *JobStore) SetProgressTotal(id uuid.UUID, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		job.ProgressTotal = total
	}
}

// Transition moves a job along one edge of its state machine, recording
// terminal fields when the new status is terminal. Illegal moves (anything
// out of a terminal state, or skipping processing) are logged and returned
// as ErrInvalidTransition without mutating the record.
func (s *JobStore) Transition(id uuid.UUID, status domain.JobStatus, terminal TerminalFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, status, terminal)
}

// ClaimOldestQueued finds the oldest queued job, transitions it to
// processing, and recomputes queue positions, all under one lock
// acquisition so two admitters can never claim the same record. It returns
// a snapshot of the claimed job, or false when nothing is queued.
func (s *JobStore) ClaimOldestQueued() (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		job := s.jobs[id]
		if job.Status != domain.JobStatusQueued {
			continue
		}
		if err := s.transitionLocked(id, domain.JobStatusProcessing, TerminalFields{}); err != nil {
			// Unreachable given the status check above, but never panic here.
			s.logger.Error("failed to claim queued job", "job_id", id, "error", err)
			return domain.Job{}, false
		}
		job.Stage = domain.StageStarting
		s.recomputePositionsLocked()
		return *job, true
	}
	return domain.Job{}, false
}

// RecomputeQueuePositions re-ranks all queued jobs 0-based by submission
// order. The admission controller calls it after every admission change.
func (s *JobStore) RecomputeQueuePositions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputePositionsLocked()
}

func (s *JobStore) transitionLocked(id uuid.UUID, status domain.JobStatus, terminal TerminalFields) error {
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if !job.CanTransitionTo(status) {
		s.logger.Warn("rejected job status transition",
			"job_id", id,
			"from", job.Status,
			"to", status)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	switch status {
	case domain.JobStatusCompleted:
		job.Stage = domain.StageComplete
		job.ProgressStep = job.ProgressTotal
		job.ResultFilename = terminal.ResultFilename
		job.EnhancedRequest = terminal.EnhancedRequest
	case domain.JobStatusError:
		job.Stage = domain.StageError
		job.EnhancedRequest = terminal.EnhancedRequest
		job.ErrorMessage = terminal.ErrorMessage
	}
	return nil
}

func (s *JobStore) recomputePositionsLocked() {
	pos := 0
	for _, id := range s.order {
		job := s.jobs[id]
		if job.Status == domain.JobStatusQueued {
			job.QueuePosition = pos
			pos++
		}
	}
}

// sweepLocked drops the oldest terminal jobs beyond the retention limit.
// Queued and processing records are never touched.
func (s *JobStore) sweepLocked() {
	terminal := 0
	for _, id := range s.order {
		if s.jobs[id].Terminal() {
			terminal++
		}
	}
	if terminal <= s.retentionLimit {
		return
	}

	excess := terminal - s.retentionLimit
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.jobs[id].Terminal() {
			delete(s.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept

	s.logger.Debug("evicted terminal jobs", "evicted", terminal-s.retentionLimit, "retained", s.retentionLimit)
}
