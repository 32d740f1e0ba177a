package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/generation"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
)

// Result carries everything the persistence stage needs to write an
// artifact and its metadata sidecar.
type Result struct {
	Image           []byte
	EnhancedRequest string
	Primary         string
	Secondary       string
	Seed            int64
	Settings        domain.Settings
}

// Persister writes a produced artifact and its metadata to storage and
// returns the recorded result filename.
type Persister interface {
	Persist(ctx context.Context, job domain.Job, result Result) (string, error)
}

// Pipeline runs the per-job stage sequence: enhance, derive parameters,
// produce, persist. One Pipeline instance serves all jobs; the production
// backend is guarded by its own mutex because it is not reentrant, and that
// mutex is held only for the single Produce call, never across the job
// lifecycle.
type Pipeline struct {
	jobs      *store.JobStore
	enhancer  generation.Enhancer
	backend   generation.Backend
	backendMu sync.Mutex
	persister Persister
	seeds     SeedConfig
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(
	jobs *store.JobStore,
	enhancer generation.Enhancer,
	backend generation.Backend,
	persister Persister,
	seeds SeedConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		jobs:      jobs,
		enhancer:  enhancer,
		backend:   backend,
		persister: persister,
		seeds:     seeds,
		logger:    logger,
	}
}

// Run executes the full pipeline for one admitted job. Every failure,
// error or panic alike, is captured into the job's own record and never
// escapes to another job's pipeline or to the admission controller.
func (p *Pipeline) Run(ctx context.Context, job domain.Job) {
	logger := p.logger.With("job_id", job.ID)

	enhanced := job.Request
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job pipeline panicked", "panic", r)
			p.fail(job.ID, enhanced, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	logger.Info("processing job", "optimize", job.Optimize, "consistency", job.Consistency)

	// Stage 1: enhancement, only when asked for. A collaborator failure or
	// an unusable response both degrade to the locally synthesized fallback.
	if job.Optimize {
		p.jobs.UpdateProgress(job.ID, 0, domain.StageOptimizing)
		text, err := p.enhancer.Enhance(ctx, job.Request)
		switch {
		case err != nil:
			logger.Warn("enhancement failed, using fallback prompt", "error", err)
			enhanced = fallbackPrompt(job.Request)
		case !usableEnhancement(text):
			logger.Warn("enhancement response unusable, using fallback prompt")
			enhanced = fallbackPrompt(job.Request)
		default:
			enhanced = text
		}
	}

	// Stage 2: parameter derivation.
	p.jobs.UpdateProgress(job.ID, 0, domain.StageProcessing)
	primary, secondary := SplitPrompt(enhanced)
	settings := job.Settings
	if job.Character != nil {
		if job.Character.Settings != nil {
			settings = job.Character.Settings.Clamp(job.Settings)
			p.jobs.SetProgressTotal(job.ID, settings.Steps)
		}
		if job.Character.Description != "" {
			primary = truncateWords(job.Character.Description + ", " + primary)
		}
	}
	seed := DeriveSeed(job, p.seeds)

	// Stage 3: produce, serialized on the backend token.
	p.jobs.UpdateProgress(job.ID, 0, domain.StageGenerating)
	image, err := p.produce(ctx, job, primary, secondary, settings, seed)
	if err != nil {
		logger.Error("artifact production failed", "error", err)
		p.fail(job.ID, enhanced, err)
		return
	}

	// Stage 4: persist artifact plus metadata sidecar.
	p.jobs.UpdateProgress(job.ID, settings.Steps, domain.StageSaving)
	filename, err := p.persister.Persist(ctx, job, Result{
		Image:           image,
		EnhancedRequest: enhanced,
		Primary:         primary,
		Secondary:       secondary,
		Seed:            seed,
		Settings:        settings,
	})
	if err != nil {
		logger.Error("artifact persistence failed", "error", err)
		p.fail(job.ID, enhanced, err)
		return
	}

	if err := p.jobs.Transition(job.ID, domain.JobStatusCompleted, store.TerminalFields{
		ResultFilename:  filename,
		EnhancedRequest: enhanced,
	}); err != nil {
		logger.Error("failed to record job completion", "error", err)
		return
	}
	logger.Info("job completed", "result", filename, "seed", seed)
}

// produce holds the backend exclusion token for exactly one invocation.
func (p *Pipeline) produce(
	ctx context.Context,
	job domain.Job,
	primary, secondary string,
	settings domain.Settings,
	seed int64,
) ([]byte, error) {
	p.backendMu.Lock()
	defer p.backendMu.Unlock()

	image, err := p.backend.Produce(ctx, primary, secondary, settings, seed, func(step int) {
		p.jobs.UpdateProgress(job.ID, step, domain.StageGenerating)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrProductionFailed, err)
	}
	return image, nil
}

func (p *Pipeline) fail(id uuid.UUID, enhanced string, err error) {
	if terr := p.jobs.Transition(id, domain.JobStatusError, store.TerminalFields{
		EnhancedRequest: enhanced,
		ErrorMessage:    err.Error(),
	}); terr != nil {
		p.logger.Error("failed to record job failure", "job_id", id, "error", terr)
	}
}
