package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/generation"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = domain.Settings{GuidanceScale: 6.0, Steps: 45}

type stubEnhancer struct {
	response string
	err      error
	calls    int
}

func (e *stubEnhancer) Enhance(_ context.Context, _ string) (string, error) {
	e.calls++
	return e.response, e.err
}

type captureBackend struct {
	mu       sync.Mutex
	primary  string
	second   string
	settings domain.Settings
	seed     int64
	calls    int

	image []byte
	err   error
	panic bool
	steps int
}

func (b *captureBackend) Produce(
	_ context.Context,
	primary, secondary string,
	settings domain.Settings,
	seed int64,
	onStep generation.StepFunc,
) ([]byte, error) {
	b.mu.Lock()
	b.primary = primary
	b.second = secondary
	b.settings = settings
	b.seed = seed
	b.calls++
	b.mu.Unlock()

	if b.panic {
		panic("backend exploded")
	}
	for i := 1; i <= b.steps; i++ {
		onStep(i)
	}
	return b.image, b.err
}

type capturePersister struct {
	filename string
	err      error
	result   Result
	calls    int
}

func (p *capturePersister) Persist(_ context.Context, _ domain.Job, result Result) (string, error) {
	p.result = result
	p.calls++
	return p.filename, p.err
}

type fixture struct {
	jobs      *store.JobStore
	enhancer  *stubEnhancer
	backend   *captureBackend
	persister *capturePersister
	pipeline  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		jobs:      store.NewJobStore(testDefaults, 0, logger),
		enhancer:  &stubEnhancer{},
		backend:   &captureBackend{image: []byte("png-bytes")},
		persister: &capturePersister{filename: "artifact.png"},
	}
	f.pipeline = New(f.jobs, f.enhancer, f.backend, f.persister,
		SeedConfig{Base: 42, Consistency: 42}, logger)
	return f
}

// admit creates a job and claims it, mirroring the admission controller.
func (f *fixture) admit(t *testing.T, params store.CreateParams) domain.Job {
	t.Helper()
	created, err := f.jobs.Create(params)
	require.NoError(t, err)
	claimed, ok := f.jobs.ClaimOldestQueued()
	require.True(t, ok)
	require.Equal(t, created.ID, claimed.ID)
	return claimed
}

func (f *fixture) get(t *testing.T, id uuid.UUID) domain.Job {
	t.Helper()
	job, ok := f.jobs.Get(id)
	require.True(t, ok)
	return job
}

func TestPipeline_CompletesWithoutEnhancement(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	job := f.admit(t, store.CreateParams{
		Request:     "sunset over mountains",
		Optimize:    false,
		Consistency: true,
	})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, domain.StageComplete, got.Stage)
	assert.Equal(t, "artifact.png", got.ResultFilename)
	assert.Equal(t, "sunset over mountains", got.EnhancedRequest)
	assert.Equal(t, got.ProgressTotal, got.ProgressStep)

	assert.Zero(t, f.enhancer.calls, "optimize off must not consult the enhancer")
	assert.Equal(t, "sunset over mountains", f.backend.primary)
	assert.Empty(t, f.backend.second)
	assert.Equal(t, int64(42), f.backend.seed)
	assert.Equal(t, testDefaults, f.backend.settings)
}

func TestPipeline_EnhancementFlowsIntoPrompts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.enhancer.response = "a golden sunset over jagged mountains\nwarm light, haze, alpenglow"

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains", Optimize: true})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, f.enhancer.response, got.EnhancedRequest)
	assert.Equal(t, "a golden sunset over jagged mountains", f.backend.primary)
	assert.Equal(t, "warm light, haze, alpenglow", f.backend.second)
	assert.Equal(t, f.enhancer.response, f.persister.result.EnhancedRequest)
}

func TestPipeline_EnhancerFailureFallsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.enhancer.err = errors.New("quota exhausted")

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains", Optimize: true})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status, "enhancer failure must not fail the job")
	assert.True(t, strings.HasPrefix(got.EnhancedRequest, "sunset over mountains, "))
	assert.Equal(t, fallbackStyleLine, f.backend.second)
}

func TestPipeline_UnusableEnhancementFallsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.enhancer.response = "- sunset\n- mountains\n- dramatic"

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains", Optimize: true})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.NotEqual(t, f.enhancer.response, got.EnhancedRequest)
	assert.True(t, usableEnhancement(got.EnhancedRequest))
}

func TestPipeline_CharacterBindingOverrides(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	binding := &domain.CharacterBinding{
		ProfileID:   uuid.New(),
		Name:        "mira",
		Description: "Mira, a silver-haired cartographer",
		Seed:        9001,
		Settings:    &domain.Settings{GuidanceScale: 9.5, Steps: 60},
	}
	job := f.admit(t, store.CreateParams{Request: "studying an old map", Character: binding})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, int64(9001), f.backend.seed)
	assert.Equal(t, 60, f.backend.settings.Steps)
	assert.InDelta(t, 9.5, f.backend.settings.GuidanceScale, 0.001)
	assert.Equal(t, 60, got.ProgressTotal)
	assert.True(t, strings.HasPrefix(f.backend.primary, binding.Description+", "),
		"binding description must lead the primary prompt")
}

func TestPipeline_BackendFailureRecordsError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.err = errors.New("generation rejected")
	f.backend.image = nil

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains"})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusError, got.Status)
	assert.Equal(t, domain.StageError, got.Stage)
	assert.Contains(t, got.ErrorMessage, "generation rejected")
	assert.Contains(t, got.ErrorMessage, generation.ErrProductionFailed.Error())
	assert.Equal(t, "sunset over mountains", got.EnhancedRequest)
	assert.Empty(t, got.ResultFilename)
	assert.Zero(t, f.persister.calls)
}

func TestPipeline_PersistFailureRecordsError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.persister.err = errors.New("disk full")
	f.persister.filename = ""

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains"})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "disk full")
	assert.Empty(t, got.ResultFilename)
}

func TestPipeline_PanicIsContained(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.panic = true

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains"})
	assert.NotPanics(t, func() {
		f.pipeline.Run(context.Background(), job)
	})

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "backend exploded")
}

func TestPipeline_FailureIsolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.err = errors.New("transient backend fault")
	f.backend.image = nil

	first := f.admit(t, store.CreateParams{Request: "first request"})
	f.pipeline.Run(context.Background(), first)

	f.backend.err = nil
	f.backend.image = []byte("png-bytes")
	second := f.admit(t, store.CreateParams{Request: "second request"})
	f.pipeline.Run(context.Background(), second)

	assert.Equal(t, domain.JobStatusError, f.get(t, first.ID).Status)
	assert.Equal(t, domain.JobStatusCompleted, f.get(t, second.ID).Status)
}

func TestPipeline_ProgressReachesStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.steps = 5

	job := f.admit(t, store.CreateParams{Request: "sunset over mountains"})
	f.pipeline.Run(context.Background(), job)

	got := f.get(t, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, got.ProgressTotal, got.ProgressStep)
}
