package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier-api/internal/artifact"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/platform/jsonfile"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/atelierhq/atelier-api/internal/store"
)

// fakeAdmitter records admission nudges without running any jobs, so
// handler tests can observe queue bookkeeping deterministically.
type fakeAdmitter struct {
	nudges        int
	active        int
	maxConcurrent int
}

func (f *fakeAdmitter) TryAdmitNext(_ context.Context) { f.nudges++ }
func (f *fakeAdmitter) Active() int                    { return f.active }
func (f *fakeAdmitter) MaxConcurrent() int             { return f.maxConcurrent }

// harness bundles a router with handles to the underlying stores so tests
// can seed and inspect state directly.
type harness struct {
	router     *chi.Mux
	jobs       *store.JobStore
	characters *jsonfile.CharacterStore
	admitter   *fakeAdmitter
	outputDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jobs := store.NewJobStore(domain.Settings{GuidanceScale: 6.0, Steps: 45}, store.DefaultRetentionLimit, logger)
	characters, err := jsonfile.NewCharacterStore(filepath.Join(t.TempDir(), "characters.json"), logger)
	require.NoError(t, err)

	outputDir := t.TempDir()
	artifacts, err := artifact.NewWriter(outputDir, logger)
	require.NoError(t, err)

	admitter := &fakeAdmitter{maxConcurrent: 5}
	generationHandler := NewGenerationHandler(
		service.NewGenerationService(jobs, characters, admitter, logger), artifacts)
	characterHandler := NewCharacterHandler(service.NewCharacterService(characters, logger))

	r := chi.NewRouter()
	r.Post("/api/generations", generationHandler.Submit)
	r.Get("/api/generations", generationHandler.List)
	r.Get("/api/generations/{id}", generationHandler.Get)
	r.Get("/api/generations/{id}/artifact", generationHandler.DownloadArtifact)
	r.Post("/api/characters", characterHandler.Create)
	r.Get("/api/characters", characterHandler.List)
	r.Get("/api/characters/{id}", characterHandler.Get)
	r.Delete("/api/characters/{id}", characterHandler.Delete)

	return &harness{
		router:     r,
		jobs:       jobs,
		characters: characters,
		admitter:   admitter,
		outputDir:  outputDir,
	}
}

// do performs a request against the harness router. A non-nil body is
// JSON-encoded.
func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// doRaw performs a request with a literal body, bypassing JSON encoding.
func (h *harness) doRaw(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// errorBody mirrors the error envelope emitted by the shared responders.
type errorBody struct {
	Error string `json:"error"`
}

// decode unmarshals a recorded JSON response body into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
