package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/scheduler"
	"github.com/atelierhq/atelier-api/internal/store"
)

var defaults = domain.Settings{GuidanceScale: 6.0, Steps: 45}

// blockingRunner holds each admitted job until released, then completes it.
type blockingRunner struct {
	jobs    *store.JobStore
	started chan domain.Job
	gate    chan struct{}
	fail    bool

	mu      sync.Mutex
	maxSeen int
	running int
}

func newBlockingRunner(jobs *store.JobStore) *blockingRunner {
	return &blockingRunner{
		jobs:    jobs,
		started: make(chan domain.Job, 64),
		gate:    make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context, job domain.Job) {
	r.mu.Lock()
	r.running++
	if r.running > r.maxSeen {
		r.maxSeen = r.running
	}
	r.mu.Unlock()

	r.started <- job
	<-r.gate

	status := domain.JobStatusCompleted
	fields := store.TerminalFields{ResultFilename: "out.png"}
	if r.fail {
		status = domain.JobStatusError
		fields = store.TerminalFields{ErrorMessage: "forced failure"}
	}
	_ = r.jobs.Transition(job.ID, status, fields)

	r.mu.Lock()
	r.running--
	r.mu.Unlock()
}

func (r *blockingRunner) waitStarted(t *testing.T, n int) []domain.Job {
	t.Helper()
	out := make([]domain.Job, 0, n)
	for i := 0; i < n; i++ {
		select {
		case job := <-r.started:
			out = append(out, job)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d to start", i+1, n)
		}
	}
	return out
}

func newHarness(t *testing.T, maxConcurrent int) (*store.JobStore, *blockingRunner, *scheduler.Scheduler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := store.NewJobStore(defaults, 0, logger)
	runner := newBlockingRunner(jobs)
	sched := scheduler.New(jobs, runner, maxConcurrent, logger)
	return jobs, runner, sched
}

func submit(t *testing.T, jobs *store.JobStore, sched *scheduler.Scheduler, request string) domain.Job {
	t.Helper()
	job, err := jobs.Create(store.CreateParams{Request: request})
	require.NoError(t, err)
	sched.TryAdmitNext(context.Background())
	return job
}

func TestScheduler_CeilingAndQueueing(t *testing.T) {
	t.Parallel()
	const max = 5
	jobs, runner, sched := newHarness(t, max)

	// One more submission than the ceiling allows.
	var last domain.Job
	for i := 0; i <= max; i++ {
		last = submit(t, jobs, sched, "request")
	}

	runner.waitStarted(t, max)
	assert.Equal(t, max, sched.Active())

	processing, queued := jobs.Counts()
	assert.Equal(t, max, processing)
	assert.Equal(t, 1, queued)

	got, ok := jobs.Get(last.ID)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusQueued, got.Status)
	assert.Equal(t, 0, got.QueuePosition)

	// Freeing slots admits the queued job with no external intervention.
	close(runner.gate)
	sched.Drain()

	assert.Equal(t, 0, sched.Active())
	got, ok = jobs.Get(last.ID)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.LessOrEqual(t, runner.maxSeen, max, "processing count must never exceed the ceiling")
}

func TestScheduler_AdmitsInSubmissionOrder(t *testing.T) {
	t.Parallel()
	jobs, runner, sched := newHarness(t, 1)

	a := submit(t, jobs, sched, "first")
	b := submit(t, jobs, sched, "second")
	c := submit(t, jobs, sched, "third")

	started := runner.waitStarted(t, 1)
	assert.Equal(t, a.ID, started[0].ID)

	// Waiting jobs are ranked by submission order.
	gotB, _ := jobs.Get(b.ID)
	gotC, _ := jobs.Get(c.ID)
	assert.Equal(t, 0, gotB.QueuePosition)
	assert.Equal(t, 1, gotC.QueuePosition)

	close(runner.gate)
	sched.Drain()

	for _, job := range []domain.Job{a, b, c} {
		got, ok := jobs.Get(job.ID)
		require.True(t, ok)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
	}
}

func TestScheduler_SlotReleasedOnFailure(t *testing.T) {
	t.Parallel()
	jobs, runner, sched := newHarness(t, 1)
	runner.fail = true

	a := submit(t, jobs, sched, "doomed")
	b := submit(t, jobs, sched, "also doomed")

	runner.waitStarted(t, 1)
	close(runner.gate)
	sched.Drain()

	// Both ran; a failing job releases its slot like any other.
	for _, job := range []domain.Job{a, b} {
		got, ok := jobs.Get(job.ID)
		require.True(t, ok)
		assert.Equal(t, domain.JobStatusError, got.Status)
		assert.Equal(t, "forced failure", got.ErrorMessage)
	}
	assert.Equal(t, 0, sched.Active())
}

func TestScheduler_AdmitWithEmptyQueue(t *testing.T) {
	t.Parallel()
	_, _, sched := newHarness(t, 2)

	// A reserved slot is returned when nothing is queued.
	sched.TryAdmitNext(context.Background())
	assert.Equal(t, 0, sched.Active())
}

func TestScheduler_ConcurrentSubmissions(t *testing.T) {
	t.Parallel()
	const max = 3
	jobs, runner, sched := newHarness(t, max)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := jobs.Create(store.CreateParams{Request: "concurrent request"}); err != nil {
				t.Error(err)
				return
			}
			sched.TryAdmitNext(context.Background())
		}()
	}
	wg.Wait()

	runner.waitStarted(t, max)
	close(runner.gate)
	sched.Drain()

	for _, job := range jobs.List() {
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.LessOrEqual(t, runner.maxSeen, max)
}
