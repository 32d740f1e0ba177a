package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of a generation job
type JobStatus string

// Possible job status values
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Stage labels published while a job moves through its pipeline.
const (
	StageWaiting    = "Waiting in queue"
	StageStarting   = "Starting"
	StageOptimizing = "Optimizing prompt"
	StageProcessing = "Processing prompt"
	StageGenerating = "Generating"
	StageSaving     = "Saving"
	StageComplete   = "Complete"
	StageError      = "Error"
)

// Settings bounds. Out-of-range values are clamped at creation, not rejected.
const (
	MinGuidanceScale = 1.0
	MaxGuidanceScale = 20.0
	MinSteps         = 10
	MaxSteps         = 150
)

// Common validation errors for Job
var (
	ErrEmptyJobID       = errors.New("job ID cannot be empty")
	ErrEmptyJobRequest  = errors.New("job request cannot be empty")
	ErrInvalidJobStatus = errors.New("invalid job status")
)

// Settings holds the numeric generation parameters for a job.
type Settings struct {
	GuidanceScale float64 `json:"guidance_scale"`
	Steps         int     `json:"steps"`
}

// Clamp returns a copy of the settings forced into the valid ranges.
// Zero values are replaced by the provided defaults before clamping.
func (s Settings) Clamp(defaults Settings) Settings {
	out := s
	if out.GuidanceScale == 0 {
		out.GuidanceScale = defaults.GuidanceScale
	}
	if out.Steps == 0 {
		out.Steps = defaults.Steps
	}
	if out.GuidanceScale < MinGuidanceScale {
		out.GuidanceScale = MinGuidanceScale
	}
	if out.GuidanceScale > MaxGuidanceScale {
		out.GuidanceScale = MaxGuidanceScale
	}
	if out.Steps < MinSteps {
		out.Steps = MinSteps
	}
	if out.Steps > MaxSteps {
		out.Steps = MaxSteps
	}
	return out
}

// CharacterBinding is the slice of a character profile a job carries around:
// enough to force a fixed seed, override settings, and key the output path.
// A job with a binding always runs with Consistency = true.
type CharacterBinding struct {
	ProfileID   uuid.UUID `json:"profile_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Seed        int64     `json:"seed"`
	Settings    *Settings `json:"settings,omitempty"`
}

// Job represents a single artifact-generation request and its mutable state.
// The record is owned by the job store; exactly one worker goroutine mutates
// it (through the store) while it is processing, and readers only ever see
// snapshots.
type Job struct {
	ID          uuid.UUID         `json:"id"`
	Request     string            `json:"request"`
	Optimize    bool              `json:"optimize"`
	Consistency bool              `json:"consistency"`
	Character   *CharacterBinding `json:"character,omitempty"`
	Settings    Settings          `json:"settings"`

	Status        JobStatus `json:"status"`
	ProgressStep  int       `json:"progress_step"`
	ProgressTotal int       `json:"progress_total"`
	Stage         string    `json:"stage"`
	QueuePosition int       `json:"queue_position"`
	CreatedAt     time.Time `json:"created_at"`

	// Terminal fields, populated exactly once when the job reaches
	// Completed or Error.
	ResultFilename  string `json:"result_filename,omitempty"`
	EnhancedRequest string `json:"enhanced_request,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// NewJob creates a new Job in the queued state. Settings are clamped against
// the provided defaults. A character binding forces consistency on.
// Returns an error if validation fails.
func NewJob(
	request string,
	optimize bool,
	consistency bool,
	settings Settings,
	defaults Settings,
	character *CharacterBinding,
) (*Job, error) {
	if character != nil {
		consistency = true
	}

	job := &Job{
		ID:            uuid.New(),
		Request:       request,
		Optimize:      optimize,
		Consistency:   consistency,
		Character:     character,
		Settings:      settings.Clamp(defaults),
		Status:        JobStatusQueued,
		ProgressTotal: settings.Clamp(defaults).Steps,
		Stage:         StageWaiting,
		CreatedAt:     time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if j.Request == "" {
		return ErrEmptyJobRequest
	}
	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}
	return nil
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// CanTransitionTo reports whether moving to the given status is a legal edge
// of the job state machine: Queued -> Processing -> {Completed, Error}.
func (j *Job) CanTransitionTo(status JobStatus) bool {
	switch j.Status {
	case JobStatusQueued:
		return status == JobStatusProcessing
	case JobStatusProcessing:
		return status == JobStatusCompleted || status == JobStatusError
	default:
		return false
	}
}

func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusError:
		return true
	default:
		return false
	}
}
