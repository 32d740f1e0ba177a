package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/domain"
)

// SettingsPayload carries optional generation settings in requests and
// responses. Zero values take the configured defaults; out-of-range values
// are clamped, never rejected.
type SettingsPayload struct {
	GuidanceScale float64 `json:"guidance_scale,omitempty"`
	Steps         int     `json:"steps,omitempty"`
}

// SubmitGenerationRequest represents the request body for submitting a
// generation job.
type SubmitGenerationRequest struct {
	Prompt      string           `json:"prompt" validate:"required,min=1"`
	Optimize    *bool            `json:"optimize_prompt,omitempty"`
	Consistency bool             `json:"consistency,omitempty"`
	Settings    *SettingsPayload `json:"settings,omitempty"`
	CharacterID *uuid.UUID       `json:"character_id,omitempty"`
}

// SubmitGenerationResponse acknowledges an accepted submission.
type SubmitGenerationResponse struct {
	JobID         string `json:"job_id"`
	QueuePosition int    `json:"queue_position"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// JobResponse represents the polling snapshot of a job.
type JobResponse struct {
	ID              string            `json:"id"`
	Prompt          string            `json:"prompt"`
	Optimize        bool              `json:"optimize_prompt"`
	Consistency     bool              `json:"consistency"`
	Status          string            `json:"status"`
	Stage           string            `json:"stage"`
	ProgressStep    int               `json:"progress_step"`
	ProgressTotal   int               `json:"progress_total"`
	QueuePosition   int               `json:"queue_position"`
	CreatedAt       time.Time         `json:"created_at"`
	Settings        SettingsPayload   `json:"settings"`
	Character       *CharacterSummary `json:"character,omitempty"`
	ResultFilename  string            `json:"result_filename,omitempty"`
	EnhancedRequest string            `json:"enhanced_prompt,omitempty"`
	ErrorMessage    string            `json:"error,omitempty"`
}

// CharacterSummary identifies the bound character profile in job responses.
type CharacterSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListGenerationsResponse wraps job snapshots with queue occupancy.
type ListGenerationsResponse struct {
	Jobs            []JobResponse `json:"jobs"`
	ProcessingCount int           `json:"processing_count"`
	QueuedCount     int           `json:"queued_count"`
	MaxConcurrent   int           `json:"max_concurrent"`
}

// CreateCharacterRequest represents the request body for saving a character
// profile.
type CreateCharacterRequest struct {
	Name           string           `json:"name" validate:"required,min=1"`
	Description    string           `json:"description" validate:"required,min=1"`
	Seed           int64            `json:"seed"`
	Settings       *SettingsPayload `json:"settings,omitempty"`
	ReferenceImage string           `json:"reference_image,omitempty"`
}

// CharacterResponse represents a character profile.
type CharacterResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Seed           int64            `json:"seed"`
	Settings       *SettingsPayload `json:"settings,omitempty"`
	ReferenceImage string           `json:"reference_image,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastUsedAt     time.Time        `json:"last_used_at"`
	TimesUsed      int              `json:"times_used"`
}

// TokenRequest represents the request body for exchanging the access
// password for a bearer token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// jobToResponse converts a domain.Job snapshot to its response form.
func jobToResponse(job domain.Job) JobResponse {
	resp := JobResponse{
		ID:              job.ID.String(),
		Prompt:          job.Request,
		Optimize:        job.Optimize,
		Consistency:     job.Consistency,
		Status:          string(job.Status),
		Stage:           job.Stage,
		ProgressStep:    job.ProgressStep,
		ProgressTotal:   job.ProgressTotal,
		QueuePosition:   job.QueuePosition,
		CreatedAt:       job.CreatedAt,
		Settings:        SettingsPayload{GuidanceScale: job.Settings.GuidanceScale, Steps: job.Settings.Steps},
		ResultFilename:  job.ResultFilename,
		EnhancedRequest: job.EnhancedRequest,
		ErrorMessage:    job.ErrorMessage,
	}
	if job.Character != nil {
		resp.Character = &CharacterSummary{
			ID:   job.Character.ProfileID.String(),
			Name: job.Character.Name,
		}
	}
	return resp
}

// characterToResponse converts a domain.Character to its response form.
func characterToResponse(character *domain.Character) CharacterResponse {
	resp := CharacterResponse{
		ID:             character.ID.String(),
		Name:           character.Name,
		Description:    character.Description,
		Seed:           character.Seed,
		ReferenceImage: character.ReferenceImage,
		CreatedAt:      character.CreatedAt,
		LastUsedAt:     character.LastUsedAt,
		TimesUsed:      character.TimesUsed,
	}
	if character.Settings != nil {
		resp.Settings = &SettingsPayload{
			GuidanceScale: character.Settings.GuidanceScale,
			Steps:         character.Settings.Steps,
		}
	}
	return resp
}
