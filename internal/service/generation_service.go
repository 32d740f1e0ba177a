// Package service contains the application services that sit between the
// HTTP layer and the stores: request validation, character binding
// resolution, and admission hand-off.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/store"
)

// ErrEmptyRequest indicates a submission with no request text. No job record
// is created for it.
var ErrEmptyRequest = errors.New("request text cannot be empty")

// Admitter triggers admission of queued jobs. Implemented by the scheduler.
type Admitter interface {
	TryAdmitNext(ctx context.Context)
	Active() int
	MaxConcurrent() int
}

// SubmitParams carries a generation submission.
type SubmitParams struct {
	Request     string
	Optimize    bool
	Consistency bool
	Settings    domain.Settings
	CharacterID *uuid.UUID
}

// QueueState summarizes the scheduler and store occupancy for list
// responses.
type QueueState struct {
	Active        int
	Queued        int
	MaxConcurrent int
}

// GenerationService coordinates job submission and retrieval.
type GenerationService struct {
	jobs       *store.JobStore
	characters store.CharacterStore
	admitter   Admitter
	logger     *slog.Logger
}

// NewGenerationService creates a GenerationService.
func NewGenerationService(
	jobs *store.JobStore,
	characters store.CharacterStore,
	admitter Admitter,
	logger *slog.Logger,
) *GenerationService {
	return &GenerationService{
		jobs:       jobs,
		characters: characters,
		admitter:   admitter,
		logger:     logger,
	}
}

// Submit validates a submission, resolves an optional character binding,
// creates the job record, and nudges the admission controller. Returns the
// created job snapshot.
func (s *GenerationService) Submit(ctx context.Context, params SubmitParams) (domain.Job, error) {
	if params.Request == "" {
		return domain.Job{}, ErrEmptyRequest
	}

	var binding *domain.CharacterBinding
	if params.CharacterID != nil {
		character, err := s.characters.GetByID(ctx, *params.CharacterID)
		if err != nil {
			return domain.Job{}, fmt.Errorf("failed to resolve character: %w", err)
		}
		binding = character.Binding()
		if err := s.characters.TouchUsage(ctx, character.ID); err != nil {
			// Usage stats are best effort; the submission proceeds.
			s.logger.Warn("failed to update character usage",
				"character_id", character.ID,
				"error", err)
		}
	}

	job, err := s.jobs.Create(store.CreateParams{
		Request:     params.Request,
		Optimize:    params.Optimize,
		Consistency: params.Consistency,
		Settings:    params.Settings,
		Character:   binding,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyJobRequest) {
			return domain.Job{}, ErrEmptyRequest
		}
		return domain.Job{}, err
	}

	s.admitter.TryAdmitNext(ctx)

	// Return the post-admission snapshot so callers see the job as
	// processing when a slot was free.
	if current, ok := s.jobs.Get(job.ID); ok {
		return current, nil
	}
	return job, nil
}

// GetJob returns a snapshot of the job with the given ID.
func (s *GenerationService) GetJob(id uuid.UUID) (domain.Job, error) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return domain.Job{}, store.ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns snapshots of all retained jobs plus the queue state.
func (s *GenerationService) ListJobs() ([]domain.Job, QueueState) {
	jobs := s.jobs.List()
	_, queued := s.jobs.Counts()
	return jobs, QueueState{
		Active:        s.admitter.Active(),
		Queued:        queued,
		MaxConcurrent: s.admitter.MaxConcurrent(),
	}
}
