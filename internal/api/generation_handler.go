package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/api/shared"
	"github.com/atelierhq/atelier-api/internal/artifact"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/atelierhq/atelier-api/internal/store"
)

// GenerationHandler handles generation job HTTP requests.
type GenerationHandler struct {
	generations *service.GenerationService
	artifacts   *artifact.Writer
	validator   *validator.Validate
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generations *service.GenerationService, artifacts *artifact.Writer) *GenerationHandler {
	return &GenerationHandler{
		generations: generations,
		artifacts:   artifacts,
		validator:   validator.New(),
	}
}

// Submit handles POST /api/generations requests.
func (h *GenerationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No prompt provided")
		return
	}

	// Prompt optimization defaults on, matching the original clients.
	optimize := true
	if req.Optimize != nil {
		optimize = *req.Optimize
	}
	var settings domain.Settings
	if req.Settings != nil {
		settings = domain.Settings{
			GuidanceScale: req.Settings.GuidanceScale,
			Steps:         req.Settings.Steps,
		}
	}

	job, err := h.generations.Submit(r.Context(), service.SubmitParams{
		Request:     req.Prompt,
		Optimize:    optimize,
		Consistency: req.Consistency,
		Settings:    settings,
		CharacterID: req.CharacterID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyRequest):
			shared.RespondWithError(w, r, http.StatusBadRequest, "No prompt provided")
		case errors.Is(err, store.ErrCharacterNotFound):
			shared.RespondWithError(w, r, http.StatusNotFound, "Character not found")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to submit generation", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitGenerationResponse{
		JobID:         job.ID.String(),
		QueuePosition: job.QueuePosition,
		Status:        string(job.Status),
		Message:       "Job accepted",
	})
}

// Get handles GET /api/generations/{id} requests.
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.generations.GetJob(id)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// List handles GET /api/generations requests.
func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, state := h.generations.ListJobs()

	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, jobToResponse(job))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ListGenerationsResponse{
		Jobs:            responses,
		ProcessingCount: state.Active,
		QueuedCount:     state.Queued,
		MaxConcurrent:   state.MaxConcurrent,
	})
}

// DownloadArtifact handles GET /api/generations/{id}/artifact requests,
// serving the produced PNG for completed jobs.
func (h *GenerationHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.generations.GetJob(id)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != domain.JobStatusCompleted || job.ResultFilename == "" {
		shared.RespondWithError(w, r, http.StatusConflict, "Job has no artifact")
		return
	}

	path, err := h.artifacts.Path(job.ResultFilename)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to resolve artifact", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}
